package services

import (
	"fmt"
	"time"

	"github.com/seongjae-dev/optionpulse/internal/config"
)

// MarketSession answers whether the underlying market is in its
// regular trading session at a given instant.
type MarketSession struct {
	openMinute  int
	closeMinute int
	loc         *time.Location
}

func NewMarketSession(cfg config.SignalsConfig) (*MarketSession, error) {
	open, err := parseClock(cfg.SessionOpen)
	if err != nil {
		return nil, fmt.Errorf("invalid session open time: %w", err)
	}
	closeAt, err := parseClock(cfg.SessionClose)
	if err != nil {
		return nil, fmt.Errorf("invalid session close time: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid session timezone: %w", err)
	}

	return &MarketSession{
		openMinute:  open,
		closeMinute: closeAt,
		loc:         loc,
	}, nil
}

// IsOpen reports whether t falls inside the weekday trading session.
func (s *MarketSession) IsOpen(t time.Time) bool {
	local := t.In(s.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	return minute >= s.openMinute && minute < s.closeMinute
}

func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
