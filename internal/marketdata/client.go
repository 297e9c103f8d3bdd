package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/config"
	"github.com/seongjae-dev/optionpulse/internal/models"
)

// ErrDataSource marks a failed snapshot fetch. It is fatal to the run
// that triggered it; the caller owns any retry cadence.
var ErrDataSource = errors.New("market data source error")

// Client fetches the options snapshot from the market-data provider.
type Client struct {
	HTTPClient *http.Client
	url        string
	apiKey     string
	logger     *logrus.Logger
}

// NewClient creates a snapshot client from configuration.
func NewClient(cfg config.MarketDataConfig, logger *logrus.Logger) *Client {
	timeout := 10 * time.Second
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil {
			timeout = d
		}
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		url:        strings.TrimSpace(cfg.SnapshotURL),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// FetchSnapshot performs one GET against the provider and returns the
// cleaned quote rows. Timeouts, non-2xx responses and non-array bodies
// all wrap ErrDataSource.
func (c *Client) FetchSnapshot(ctx context.Context) ([]models.RawQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrDataSource, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "OptionPulse/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrDataSource, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing snapshot response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrDataSource, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: provider returned status %d", ErrDataSource, resp.StatusCode)
	}

	var rows []wireQuote
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: response is not a quote array: %v", ErrDataSource, err)
	}

	quotes := make([]models.RawQuote, 0, len(rows))
	for _, row := range rows {
		quotes = append(quotes, row.toRawQuote())
	}

	c.logger.WithFields(logrus.Fields{
		"quotes": len(quotes),
		"status": resp.StatusCode,
	}).Debug("Fetched options snapshot")

	return quotes, nil
}
