package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seongjae-dev/optionpulse/internal/marketdata"
	"github.com/seongjae-dev/optionpulse/internal/models"
	"github.com/seongjae-dev/optionpulse/internal/services"
	"github.com/seongjae-dev/optionpulse/internal/store"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubRunner struct {
	result   *services.RunResult
	err      error
	readOnly bool
}

func (s *stubRunner) Run(ctx context.Context, readOnly bool) (*services.RunResult, error) {
	s.readOnly = readOnly
	return s.result, s.err
}

type stubReader struct {
	byID   map[string]*models.Signal
	latest *models.Signal
	err    error
}

func (s *stubReader) GetSignalByID(ctx context.Context, id string) (*models.Signal, error) {
	if s.err != nil {
		return nil, s.err
	}
	sig, ok := s.byID[id]
	if !ok {
		return nil, store.ErrSignalNotFound
	}
	return sig, nil
}

func (s *stubReader) LatestSignal(ctx context.Context) (*models.Signal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.latest == nil {
		return nil, store.ErrSignalNotFound
	}
	return s.latest, nil
}

type stubCache struct {
	sig *models.Signal
	err error
}

func (s *stubCache) GetLatest(ctx context.Context) (*models.Signal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sig, nil
}

func signalRouter(h *SignalHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/signals/run", h.Run)
	router.GET("/signals/preview", h.Preview)
	router.GET("/signals/latest", h.Latest)
	router.GET("/signals/:id", h.GetByID)
	return router
}

func doRequest(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRunReturnsResult(t *testing.T) {
	runner := &stubRunner{result: &services.RunResult{
		Signal:       &models.Signal{ID: "sig-1"},
		NotifyWorthy: true,
		Persisted:    true,
		QuoteCount:   120,
	}}
	h := NewSignalHandler(runner, &stubReader{}, nil, testLogger())

	w := doRequest(signalRouter(h), http.MethodPost, "/signals/run")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, runner.readOnly)

	var result services.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "sig-1", result.Signal.ID)
	assert.True(t, result.Persisted)
	assert.Equal(t, 120, result.QuoteCount)
}

func TestPreviewRunsReadOnly(t *testing.T) {
	runner := &stubRunner{result: &services.RunResult{Signal: &models.Signal{}}}
	h := NewSignalHandler(runner, &stubReader{}, nil, testLogger())

	w := doRequest(signalRouter(h), http.MethodGet, "/signals/preview")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, runner.readOnly)
}

func TestRunErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"data source failure", fmt.Errorf("%w: provider returned status 503", marketdata.ErrDataSource), http.StatusBadGateway},
		{"internal failure", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSignalHandler(&stubRunner{err: tt.err}, &stubReader{}, nil, testLogger())

			w := doRequest(signalRouter(h), http.MethodPost, "/signals/run")
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestLatestPrefersCache(t *testing.T) {
	cache := &stubCache{sig: &models.Signal{ID: "cached"}}
	reader := &stubReader{latest: &models.Signal{ID: "stored"}}
	h := NewSignalHandler(&stubRunner{}, reader, cache, testLogger())

	w := doRequest(signalRouter(h), http.MethodGet, "/signals/latest")
	require.Equal(t, http.StatusOK, w.Code)

	var sig models.Signal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sig))
	assert.Equal(t, "cached", sig.ID)
}

func TestLatestFallsBackToStore(t *testing.T) {
	cache := &stubCache{err: errors.New("cache miss")}
	reader := &stubReader{latest: &models.Signal{ID: "stored"}}
	h := NewSignalHandler(&stubRunner{}, reader, cache, testLogger())

	w := doRequest(signalRouter(h), http.MethodGet, "/signals/latest")
	require.Equal(t, http.StatusOK, w.Code)

	var sig models.Signal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sig))
	assert.Equal(t, "stored", sig.ID)
}

func TestLatestNotFound(t *testing.T) {
	h := NewSignalHandler(&stubRunner{}, &stubReader{}, nil, testLogger())

	w := doRequest(signalRouter(h), http.MethodGet, "/signals/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetByID(t *testing.T) {
	reader := &stubReader{byID: map[string]*models.Signal{
		"sig-1": {ID: "sig-1", Sentiment: "Bullish drift."},
	}}
	h := NewSignalHandler(&stubRunner{}, reader, nil, testLogger())
	router := signalRouter(h)

	w := doRequest(router, http.MethodGet, "/signals/sig-1")
	require.Equal(t, http.StatusOK, w.Code)

	var sig models.Signal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sig))
	assert.Equal(t, "Bullish drift.", sig.Sentiment)

	w = doRequest(router, http.MethodGet, "/signals/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetByIDStoreFailure(t *testing.T) {
	reader := &stubReader{err: errors.New("db down")}
	h := NewSignalHandler(&stubRunner{}, reader, nil, testLogger())

	w := doRequest(signalRouter(h), http.MethodGet, "/signals/sig-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
