package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

func newMockStore(t *testing.T) (*SignalStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewSignalStoreWithQuerier(mock), mock
}

func TestCreateSignalAssignsIDAndTimestamp(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO signals").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), true, "Bullish drift.",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sig := &models.Signal{
		MarketOpen:     true,
		Sentiment:      "Bullish drift.",
		CallSuggestion: models.WaitSuggestion(),
		PutSuggestion:  models.WaitSuggestion(),
	}

	require.NoError(t, store.CreateSignal(context.Background(), sig))
	assert.NotEmpty(t, sig.ID)
	assert.False(t, sig.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSignalKeepsCallerIdentity(t *testing.T) {
	store, mock := newMockStore(t)

	createdAt := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO signals").
		WithArgs(
			"sig-1", createdAt, false, "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sig := &models.Signal{ID: "sig-1", CreatedAt: createdAt}
	require.NoError(t, store.CreateSignal(context.Background(), sig))
	assert.Equal(t, "sig-1", sig.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func signalRow(id string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "created_at", "market_open", "sentiment",
		"call_suggestion", "put_suggestion", "super_calls", "super_puts", "notification_sent",
	}).AddRow(
		id, time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC), true, "Bullish drift.",
		[]byte(`{"decision":"BUY","symbol":"KOSPI C 10500","entry_price":"297.5","reasoning":"Cheap gearing."}`),
		[]byte(`{"decision":"WAIT","entry_price":"0","reasoning":"No analysis performed."}`),
		[]byte(`[{"symbol":"KOSPI C 10750","side":"call","spot":0,"strike":0,"premium":0,"days_to_expiry":0,"bid":0,"ask":0,"volume":0,"open_interest":0,"underlying_change_pct":0,"implied_vol":0.35,"gearing":41.2,"moneyness":0,"spread_pct":0,"breakeven":0,"breakeven_distance_pct":0,"trade_count":0,"score":117.7,"display":null}]`),
		[]byte(`[]`),
		true,
	)
}

func TestGetSignalByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM signals WHERE id").
		WithArgs("sig-1").
		WillReturnRows(signalRow("sig-1"))

	sig, err := store.GetSignalByID(context.Background(), "sig-1")
	require.NoError(t, err)

	assert.Equal(t, "sig-1", sig.ID)
	assert.True(t, sig.MarketOpen)
	assert.Equal(t, models.DecisionBuy, sig.CallSuggestion.Decision)
	assert.Equal(t, "KOSPI C 10500", sig.CallSuggestion.Symbol)
	assert.Equal(t, models.DecisionWait, sig.PutSuggestion.Decision)
	require.Len(t, sig.SuperCalls, 1)
	assert.Equal(t, "KOSPI C 10750", sig.SuperCalls[0].Symbol)
	assert.Empty(t, sig.SuperPuts)
	assert.True(t, sig.NotificationSent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSignalByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM signals WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetSignalByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSignalNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestSignal(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM signals ORDER BY created_at DESC LIMIT 1").
		WillReturnRows(signalRow("sig-9"))

	sig, err := store.LatestSignal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sig-9", sig.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestSignalEmptyTable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM signals ORDER BY created_at DESC LIMIT 1").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.LatestSignal(context.Background())
	assert.ErrorIs(t, err, ErrSignalNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNotificationSent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE signals SET notification_sent = true").
		WithArgs("sig-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkNotificationSent(context.Background(), "sig-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveSubscribers(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	chat := "12345"

	mock.ExpectQuery("SELECT (.+) FROM subscribers").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "telegram_chat_id", "notify_enabled", "subscription_active", "created_at", "updated_at",
		}).AddRow("sub-1", &chat, true, true, now, now))

	subs, err := store.ListActiveSubscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-1", subs[0].ID)
	assert.True(t, subs[0].HasMessagingLinked())
	assert.Equal(t, "12345", *subs[0].TelegramChatID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveSubscribersEmpty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM subscribers").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "telegram_chat_id", "notify_enabled", "subscription_active", "created_at", "updated_at",
		}))

	subs, err := store.ListActiveSubscribers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
