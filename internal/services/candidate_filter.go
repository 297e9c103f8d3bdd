package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

// FilterConfig holds the liquidity/quality/moneyness thresholds a
// contract must clear to become a trade candidate.
type FilterConfig struct {
	MinVolume        float64
	MinOpenInterest  float64
	MaxSpreadPct     float64
	CallMoneynessMin float64
	CallMoneynessMax float64
	PutMoneynessMin  float64
	PutMoneynessMax  float64
	MaxPremium       float64
	MaxImpliedVol    float64
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinVolume:        1000,
		MinOpenInterest:  100,
		MaxSpreadPct:     30,
		CallMoneynessMin: 0.05,
		CallMoneynessMax: 0.4,
		PutMoneynessMin:  -0.4,
		PutMoneynessMax:  -0.05,
		MaxPremium:       8000,
		MaxImpliedVol:    2.0,
	}
}

// CandidateFilter rejects contracts failing any threshold rule. Output
// order matches input order; rejected contracts are logged at debug
// level and dropped silently.
type CandidateFilter struct {
	config FilterConfig
	logger *logrus.Logger
}

func NewCandidateFilter(logger *logrus.Logger) *CandidateFilter {
	return &CandidateFilter{
		config: DefaultFilterConfig(),
		logger: logger,
	}
}

// Filter returns the surviving contracts as candidates with their
// display fields attached.
func (f *CandidateFilter) Filter(contracts []models.ContractMetrics) []models.Candidate {
	candidates := make([]models.Candidate, 0, len(contracts))
	for _, c := range contracts {
		if reason := f.rejectReason(c); reason != "" {
			f.logger.WithFields(logrus.Fields{
				"symbol": c.Symbol,
				"reason": reason,
			}).Debug("Filtered out contract")
			continue
		}
		candidates = append(candidates, newCandidate(c))
	}
	return candidates
}

// rejectReason checks the rules in table order and short-circuits on
// the first failure. Moneyness comparisons are strict, so a call at
// exactly 0.05 passes.
func (f *CandidateFilter) rejectReason(c models.ContractMetrics) string {
	cfg := f.config

	switch {
	case c.Volume < cfg.MinVolume:
		return "illiquid"
	case c.OpenInterest < cfg.MinOpenInterest:
		return "low open interest"
	case c.SpreadPct > cfg.MaxSpreadPct:
		return "wide spread"
	case c.Side == models.SideCall && (c.Moneyness < cfg.CallMoneynessMin || c.Moneyness > cfg.CallMoneynessMax):
		return "out of moneyness band"
	case c.Side == models.SidePut && (c.Moneyness > cfg.PutMoneynessMax || c.Moneyness < cfg.PutMoneynessMin):
		return "out of moneyness band"
	case c.Premium > cfg.MaxPremium:
		return "too expensive"
	case c.ImpliedVol <= 0 || c.ImpliedVol > cfg.MaxImpliedVol:
		return "invalid implied volatility"
	}

	return ""
}

func newCandidate(c models.ContractMetrics) models.Candidate {
	trendStyle := "up"
	if c.UnderlyingChangePct < 0 {
		trendStyle = "down"
	}

	return models.Candidate{
		ContractMetrics: c,
		Display: []models.DisplayField{
			{Label: "Premium", Value: fmt.Sprintf("%.2f", c.Premium)},
			{Label: "IV", Value: fmt.Sprintf("%.1f%%", c.ImpliedVol*100)},
			{Label: "Gearing", Value: fmt.Sprintf("%.1fx", c.Gearing)},
			{Label: "Spread", Value: fmt.Sprintf("%.2f%%", c.SpreadPct)},
			{Label: "Breakeven", Value: fmt.Sprintf("%.2f", c.Breakeven)},
			{Label: "Underlying", Value: fmt.Sprintf("%+.2f%%", c.UnderlyingChangePct), Style: trendStyle},
		},
	}
}
