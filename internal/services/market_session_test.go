package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seongjae-dev/optionpulse/internal/config"
)

func seoulSession(t *testing.T) *MarketSession {
	t.Helper()
	s, err := NewMarketSession(config.SignalsConfig{
		SessionOpen:  "09:00",
		SessionClose: "15:30",
		Timezone:     "Asia/Seoul",
	})
	require.NoError(t, err)
	return s
}

func TestMarketSessionIsOpen(t *testing.T) {
	s := seoulSession(t)
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"before open", time.Date(2026, 3, 2, 8, 59, 0, 0, seoul), false},
		{"at open", time.Date(2026, 3, 2, 9, 0, 0, 0, seoul), true},
		{"midday", time.Date(2026, 3, 2, 12, 0, 0, 0, seoul), true},
		{"last minute", time.Date(2026, 3, 2, 15, 29, 0, 0, seoul), true},
		{"at close", time.Date(2026, 3, 2, 15, 30, 0, 0, seoul), false},
		{"saturday", time.Date(2026, 3, 7, 12, 0, 0, 0, seoul), false},
		{"sunday", time.Date(2026, 3, 8, 12, 0, 0, 0, seoul), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, s.IsOpen(tt.at))
		})
	}
}

func TestMarketSessionConvertsForeignTimezones(t *testing.T) {
	s := seoulSession(t)

	// 01:00 UTC on a weekday is 10:00 in Seoul.
	assert.True(t, s.IsOpen(time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)))
	// 12:00 UTC is 21:00 in Seoul, after the close.
	assert.False(t, s.IsOpen(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))
}

func TestNewMarketSessionRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SignalsConfig
	}{
		{"bad open", config.SignalsConfig{SessionOpen: "9am", SessionClose: "15:30", Timezone: "UTC"}},
		{"bad close", config.SignalsConfig{SessionOpen: "09:00", SessionClose: "25:00", Timezone: "UTC"}},
		{"bad timezone", config.SignalsConfig{SessionOpen: "09:00", SessionClose: "15:30", Timezone: "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMarketSession(tt.cfg)
			assert.Error(t, err)
		})
	}
}
