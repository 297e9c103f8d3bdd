package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/seongjae-dev/optionpulse/internal/database"
	"github.com/seongjae-dev/optionpulse/internal/models"
)

// ErrSignalNotFound is returned when a signal ID has no row.
var ErrSignalNotFound = errors.New("signal not found")

// Querier is the slice of pgxpool.Pool the store uses, kept narrow so
// pgxmock can stand in during tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// SignalStore persists signals and reads the subscriber set.
type SignalStore struct {
	db Querier
}

func NewSignalStore(db *database.PostgresDB) *SignalStore {
	return &SignalStore{db: db.Pool}
}

// NewSignalStoreWithQuerier creates a store over a custom querier (for tests).
func NewSignalStoreWithQuerier(db Querier) *SignalStore {
	return &SignalStore{db: db}
}

const signalColumns = `id, created_at, market_open, sentiment, call_suggestion, put_suggestion, super_calls, super_puts, notification_sent`

// CreateSignal inserts one signal row, assigning an ID and timestamp
// when the caller left them empty.
func (s *SignalStore) CreateSignal(ctx context.Context, sig *models.Signal) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}

	callJSON, err := json.Marshal(sig.CallSuggestion)
	if err != nil {
		return fmt.Errorf("failed to marshal call suggestion: %w", err)
	}
	putJSON, err := json.Marshal(sig.PutSuggestion)
	if err != nil {
		return fmt.Errorf("failed to marshal put suggestion: %w", err)
	}
	superCallsJSON, err := json.Marshal(sig.SuperCalls)
	if err != nil {
		return fmt.Errorf("failed to marshal super calls: %w", err)
	}
	superPutsJSON, err := json.Marshal(sig.SuperPuts)
	if err != nil {
		return fmt.Errorf("failed to marshal super puts: %w", err)
	}

	query := `
		INSERT INTO signals (` + signalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.Exec(ctx, query,
		sig.ID, sig.CreatedAt, sig.MarketOpen, sig.Sentiment,
		callJSON, putJSON, superCallsJSON, superPutsJSON, sig.NotificationSent,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}

	return nil
}

// GetSignalByID fetches one signal, ErrSignalNotFound when absent.
func (s *SignalStore) GetSignalByID(ctx context.Context, id string) (*models.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE id = $1`
	return s.scanSignal(s.db.QueryRow(ctx, query, id))
}

// LatestSignal fetches the most recently created signal.
func (s *SignalStore) LatestSignal(ctx context.Context) (*models.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals ORDER BY created_at DESC LIMIT 1`
	return s.scanSignal(s.db.QueryRow(ctx, query))
}

// MarkNotificationSent flips the only mutable flag on a signal.
func (s *SignalStore) MarkNotificationSent(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `UPDATE signals SET notification_sent = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// ListActiveSubscribers returns every subscriber eligible for signal
// notifications: messaging linked, notifications on, subscription active.
func (s *SignalStore) ListActiveSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	query := `
		SELECT id, telegram_chat_id, notify_enabled, subscription_active, created_at, updated_at
		FROM subscribers
		WHERE telegram_chat_id IS NOT NULL
		  AND telegram_chat_id != ''
		  AND notify_enabled = true
		  AND subscription_active = true
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		if err := rows.Scan(&sub.ID, &sub.TelegramChatID, &sub.NotifyEnabled, &sub.SubscriptionActive, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		subscribers = append(subscribers, sub)
	}

	return subscribers, rows.Err()
}

func (s *SignalStore) scanSignal(row pgx.Row) (*models.Signal, error) {
	var (
		sig            models.Signal
		callJSON       []byte
		putJSON        []byte
		superCallsJSON []byte
		superPutsJSON  []byte
	)

	err := row.Scan(&sig.ID, &sig.CreatedAt, &sig.MarketOpen, &sig.Sentiment,
		&callJSON, &putJSON, &superCallsJSON, &superPutsJSON, &sig.NotificationSent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSignalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan signal row: %w", err)
	}

	if err := json.Unmarshal(callJSON, &sig.CallSuggestion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal call suggestion: %w", err)
	}
	if err := json.Unmarshal(putJSON, &sig.PutSuggestion); err != nil {
		return nil, fmt.Errorf("failed to unmarshal put suggestion: %w", err)
	}
	if len(superCallsJSON) > 0 {
		if err := json.Unmarshal(superCallsJSON, &sig.SuperCalls); err != nil {
			return nil, fmt.Errorf("failed to unmarshal super calls: %w", err)
		}
	}
	if len(superPutsJSON) > 0 {
		if err := json.Unmarshal(superPutsJSON, &sig.SuperPuts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal super puts: %w", err)
		}
	}

	return &sig, nil
}
