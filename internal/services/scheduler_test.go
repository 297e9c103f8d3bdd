package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

func TestSchedulerDisabledWithoutInterval(t *testing.T) {
	fx := newOrchestratorFixture(t, &fakeFetcher{}, &fakeAdvisor{err: ErrAIService})

	s := NewScheduler(fx.orch, 0, testLogger())
	s.Start()
	s.Stop()
}

type countingFetcher struct {
	calls chan struct{}
}

func (f *countingFetcher) FetchSnapshot(ctx context.Context) ([]models.RawQuote, error) {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return nil, nil
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	fetcher := &countingFetcher{calls: make(chan struct{}, 1)}
	fx := newOrchestratorFixture(t, &fakeFetcher{}, &fakeAdvisor{err: ErrAIService})
	fx.orch.deps.Fetcher = fetcher

	s := NewScheduler(fx.orch, 5*time.Millisecond, testLogger())
	s.Start()
	defer s.Stop()

	select {
	case <-fetcher.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never triggered a run")
	}
}

func TestSchedulerStopWaitsForLoop(t *testing.T) {
	fx := newOrchestratorFixture(t, &fakeFetcher{}, &fakeAdvisor{err: ErrAIService})

	s := NewScheduler(fx.orch, time.Hour, testLogger())
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	require.NotNil(t, s.ctx.Err())
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
}
