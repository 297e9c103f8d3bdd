package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/marketdata"
	"github.com/seongjae-dev/optionpulse/internal/models"
	"github.com/seongjae-dev/optionpulse/internal/services"
	"github.com/seongjae-dev/optionpulse/internal/store"
)

// SignalRunner triggers one orchestrator pass.
type SignalRunner interface {
	Run(ctx context.Context, readOnly bool) (*services.RunResult, error)
}

// SignalReader reads persisted signals.
type SignalReader interface {
	GetSignalByID(ctx context.Context, id string) (*models.Signal, error)
	LatestSignal(ctx context.Context) (*models.Signal, error)
}

// LatestGetter is the optional cache in front of the reader.
type LatestGetter interface {
	GetLatest(ctx context.Context) (*models.Signal, error)
}

// SignalHandler exposes the run/preview trigger entrypoints and signal
// lookups.
type SignalHandler struct {
	runner SignalRunner
	reader SignalReader
	cache  LatestGetter
	logger *logrus.Logger
}

func NewSignalHandler(runner SignalRunner, reader SignalReader, cache LatestGetter, logger *logrus.Logger) *SignalHandler {
	return &SignalHandler{
		runner: runner,
		reader: reader,
		cache:  cache,
		logger: logger,
	}
}

// Run is the scheduled-trigger entrypoint: a full pipeline pass with
// persistence and broadcast.
func (h *SignalHandler) Run(c *gin.Context) {
	h.run(c, false)
}

// Preview runs the pipeline read-only for live inspection: no
// persistence, no broadcast.
func (h *SignalHandler) Preview(c *gin.Context) {
	h.run(c, true)
}

func (h *SignalHandler) run(c *gin.Context, readOnly bool) {
	result, err := h.runner.Run(c.Request.Context(), readOnly)
	if err != nil {
		h.logger.WithError(err).Error("Signal run failed")
		status := http.StatusInternalServerError
		if errors.Is(err, marketdata.ErrDataSource) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Latest serves the most recent persisted signal, cache first.
func (h *SignalHandler) Latest(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		if sig, err := h.cache.GetLatest(ctx); err == nil {
			c.JSON(http.StatusOK, sig)
			return
		}
	}

	sig, err := h.reader.LatestSignal(ctx)
	if errors.Is(err, store.ErrSignalNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no signal yet"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest signal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest signal"})
		return
	}

	c.JSON(http.StatusOK, sig)
}

// GetByID serves one signal by its identifier.
func (h *SignalHandler) GetByID(c *gin.Context) {
	sig, err := h.reader.GetSignalByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrSignalNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load signal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal"})
		return
	}

	c.JSON(http.StatusOK, sig)
}
