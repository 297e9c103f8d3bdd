package services

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

const (
	minDaysToExpiry = 2
	minOpenInterest = 10
	daysPerYear     = 365.0

	ivLowerBound    = 1e-4
	ivUpperBound    = 5.0
	ivPriceTol      = 1e-6
	ivMaxIterations = 100
)

// MetricsCalculator turns one raw quote into a derived contract record.
// A nil result means the quote was rejected, not that an error occurred.
type MetricsCalculator struct {
	riskFreeRate float64
	logger       *logrus.Logger
}

func NewMetricsCalculator(riskFreeRate float64, logger *logrus.Logger) *MetricsCalculator {
	return &MetricsCalculator{
		riskFreeRate: riskFreeRate,
		logger:       logger,
	}
}

// Compute derives the per-contract metrics. Quotes with too little time
// to expiry, a non-positive premium or spot, or thin open interest are
// rejected up front. Implied volatility falls back to zero when the
// solver does not converge; every other field is still returned.
func (m *MetricsCalculator) Compute(q models.RawQuote) *models.ContractMetrics {
	if q.DaysToExpiry <= minDaysToExpiry || q.Premium <= 0 || q.Spot <= 0 || q.OpenInterest < minOpenInterest {
		return nil
	}

	spreadPct := 0.0
	if q.Ask > 0 {
		spreadPct = (q.Ask - q.Bid) / q.Ask * 100
	}

	breakeven := q.Strike + q.Premium
	if q.Side == models.SidePut {
		breakeven = q.Strike - q.Premium
	}

	return &models.ContractMetrics{
		RawQuote:             q,
		ImpliedVol:           m.impliedVolatility(q),
		Gearing:              q.Spot / q.Premium,
		Moneyness:            q.Strike/q.Spot - 1,
		SpreadPct:            spreadPct,
		Breakeven:            breakeven,
		BreakevenDistancePct: (breakeven - q.Spot) / q.Spot * 100,
		TradeCount:           int64(q.Volume),
	}
}

// impliedVolatility solves for the volatility that reproduces the
// observed premium under Black-Scholes, Newton-Raphson first with a
// bisection fallback. Returns 0 when no solution exists in bounds.
func (m *MetricsCalculator) impliedVolatility(q models.RawQuote) float64 {
	t := float64(q.DaysToExpiry) / daysPerYear

	// Brenner-Subrahmanyam starting point, clamped into bounds.
	sigma := math.Sqrt(2*math.Pi/t) * q.Premium / q.Spot
	sigma = math.Min(math.Max(sigma, 0.1), 1.0)

	for i := 0; i < ivMaxIterations; i++ {
		price := blackScholesPrice(q.Side, q.Spot, q.Strike, t, m.riskFreeRate, sigma)
		diff := price - q.Premium
		if math.IsNaN(diff) || math.IsInf(diff, 0) {
			break
		}
		if math.Abs(diff) < ivPriceTol {
			return sigma
		}

		vega := blackScholesVega(q.Spot, q.Strike, t, m.riskFreeRate, sigma)
		if vega < 1e-10 {
			break
		}

		next := sigma - diff/vega
		if math.IsNaN(next) || next < ivLowerBound || next > ivUpperBound {
			break
		}
		sigma = next
	}

	return m.bisectImpliedVol(q, t)
}

func (m *MetricsCalculator) bisectImpliedVol(q models.RawQuote, t float64) float64 {
	lo, hi := ivLowerBound, ivUpperBound

	fLo := blackScholesPrice(q.Side, q.Spot, q.Strike, t, m.riskFreeRate, lo) - q.Premium
	fHi := blackScholesPrice(q.Side, q.Spot, q.Strike, t, m.riskFreeRate, hi) - q.Premium
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		// Premium outside the attainable price range, no root to find.
		m.logger.WithFields(logrus.Fields{
			"symbol":  q.Symbol,
			"premium": q.Premium,
		}).Debug("Implied volatility unsolvable for quote")
		return 0
	}

	for i := 0; i < ivMaxIterations; i++ {
		mid := (lo + hi) / 2
		fMid := blackScholesPrice(q.Side, q.Spot, q.Strike, t, m.riskFreeRate, mid) - q.Premium
		if math.IsNaN(fMid) {
			return 0
		}
		if math.Abs(fMid) < ivPriceTol || (hi-lo)/2 < 1e-8 {
			return mid
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo = mid
			fLo = fMid
		}
	}

	return (lo + hi) / 2
}

// blackScholesPrice returns the theoretical premium for a European
// option with time to expiry t (in years) and volatility sigma.
func blackScholesPrice(side models.OptionSide, spot, strike, t, r, sigma float64) float64 {
	if t <= 0 || sigma <= 0 || spot <= 0 || strike <= 0 {
		return math.NaN()
	}

	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (r+sigma*sigma/2)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := math.Exp(-r * t)

	if side == models.SidePut {
		return strike*discount*stdNormCDF(-d2) - spot*stdNormCDF(-d1)
	}
	return spot*stdNormCDF(d1) - strike*discount*stdNormCDF(d2)
}

func blackScholesVega(spot, strike, t, r, sigma float64) float64 {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(spot/strike) + (r+sigma*sigma/2)*t) / (sigma * sqrtT)
	return spot * sqrtT * stdNormPDF(d1)
}

func stdNormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func stdNormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
