package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

// SnapshotFetcher provides one options-market snapshot per run.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) ([]models.RawQuote, error)
}

// SignalWriter is the persistence collaborator for notify-worthy runs.
type SignalWriter interface {
	CreateSignal(ctx context.Context, sig *models.Signal) error
	MarkNotificationSent(ctx context.Context, id string) error
}

// LatestCache mirrors the just-persisted signal for cheap polling.
type LatestCache interface {
	SetLatest(ctx context.Context, sig *models.Signal) error
}

// Notifier fans the rendered message out and reports attempts.
type Notifier interface {
	Broadcast(ctx context.Context, text string) int
}

// Publisher pushes events to live dashboard clients.
type Publisher interface {
	Publish(eventType string, data interface{})
}

// AdviceProvider asks the reasoning service for a suggestion pair.
type AdviceProvider interface {
	Advise(ctx context.Context, topCalls, topPuts, filtered []models.Candidate) (*Advice, error)
}

// RunResult is what one orchestrator run hands back to its caller. The
// Signal is always populated, even when the run was read-only or not
// notify-worthy and nothing was persisted.
type RunResult struct {
	Signal              *models.Signal     `json:"signal"`
	NotifyWorthy        bool               `json:"notify_worthy"`
	Persisted           bool               `json:"persisted"`
	RecipientsAttempted int                `json:"recipients_attempted"`
	QuoteCount          int                `json:"quote_count"`
	FilteredCount       int                `json:"filtered_count"`
	TopCalls            []models.Candidate `json:"top_calls"`
	TopPuts             []models.Candidate `json:"top_puts"`
}

// OrchestratorDeps wires the pipeline stages and collaborators together.
type OrchestratorDeps struct {
	Fetcher   SnapshotFetcher
	Metrics   *MetricsCalculator
	Filter    *CandidateFilter
	Ranker    *Ranker
	Advisor   AdviceProvider
	Store     SignalWriter
	Cache     LatestCache
	Notifier  Notifier
	Publisher Publisher
	Session   *MarketSession
	Logger    *logrus.Logger
}

// Orchestrator composes the full pipeline: snapshot -> metrics ->
// filter -> rank -> AI advice, then persistence and broadcast when the
// run is notify-worthy.
type Orchestrator struct {
	deps OrchestratorDeps
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Run executes one pipeline pass. A failed snapshot fetch is fatal and
// surfaces to the caller; an AI failure only degrades the suggestions.
// With readOnly set, the run never persists, broadcasts or publishes.
func (o *Orchestrator) Run(ctx context.Context, readOnly bool) (*RunResult, error) {
	d := o.deps

	quotes, err := d.Fetcher.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	contracts := make([]models.ContractMetrics, 0, len(quotes))
	for _, q := range quotes {
		if m := d.Metrics.Compute(q); m != nil {
			contracts = append(contracts, *m)
		}
	}

	filtered := d.Filter.Filter(contracts)

	var calls, puts []models.Candidate
	for _, c := range filtered {
		if c.Side == models.SidePut {
			puts = append(puts, c)
		} else {
			calls = append(calls, c)
		}
	}

	callRank := d.Ranker.Rank(calls)
	putRank := d.Ranker.Rank(puts)

	now := time.Now().UTC()
	sig := &models.Signal{
		CreatedAt:      now,
		MarketOpen:     d.Session.IsOpen(now),
		CallSuggestion: models.WaitSuggestion(),
		PutSuggestion:  models.WaitSuggestion(),
		SuperCalls:     callRank.Super,
		SuperPuts:      putRank.Super,
	}

	advice, err := d.Advisor.Advise(ctx, callRank.Top, putRank.Top, filtered)
	if err != nil {
		d.Logger.WithError(err).Warn("AI advice unavailable, keeping WAIT defaults")
		sig.Sentiment = "No AI analysis was performed for this run."
	} else {
		sig.Sentiment = advice.Sentiment
		sig.CallSuggestion = advice.Call
		sig.PutSuggestion = advice.Put
	}

	notifyWorthy := len(callRank.Super) > 0 || len(putRank.Super) > 0 ||
		sig.CallSuggestion.Decision == models.DecisionBuy

	result := &RunResult{
		Signal:        sig,
		NotifyWorthy:  notifyWorthy,
		QuoteCount:    len(quotes),
		FilteredCount: len(filtered),
		TopCalls:      callRank.Top,
		TopPuts:       putRank.Top,
	}

	d.Logger.WithFields(logrus.Fields{
		"quotes":        len(quotes),
		"filtered":      len(filtered),
		"super_calls":   len(callRank.Super),
		"super_puts":    len(putRank.Super),
		"notify_worthy": notifyWorthy,
	}).Info("Signal run completed")

	bothWait := sig.CallSuggestion.IsWait() && sig.PutSuggestion.IsWait()
	if readOnly || !notifyWorthy || bothWait {
		return result, nil
	}

	if err := d.Store.CreateSignal(ctx, sig); err != nil {
		return nil, fmt.Errorf("failed to persist signal: %w", err)
	}
	result.Persisted = true

	if d.Cache != nil {
		if err := d.Cache.SetLatest(ctx, sig); err != nil {
			d.Logger.WithError(err).Warn("Failed to cache latest signal")
		}
	}

	result.RecipientsAttempted = d.Notifier.Broadcast(ctx, FormatSignalMessage(sig))
	if result.RecipientsAttempted > 0 {
		sig.NotificationSent = true
		if err := d.Store.MarkNotificationSent(ctx, sig.ID); err != nil {
			d.Logger.WithError(err).Warn("Failed to record notification flag")
		}
	}

	if d.Publisher != nil {
		d.Publisher.Publish("signal", sig)
	}

	return result, nil
}
