package models

// OptionSide distinguishes calls from puts.
type OptionSide string

const (
	SideCall OptionSide = "call"
	SidePut  OptionSide = "put"
)

// RawQuote is one contract row from the market-data provider snapshot.
// It is fetched once per run and discarded afterwards; all fields are
// already cleaned (missing or malformed provider values decode to zero).
type RawQuote struct {
	Symbol              string     `json:"symbol"`
	Side                OptionSide `json:"side"`
	Spot                float64    `json:"spot"`
	Strike              float64    `json:"strike"`
	Premium             float64    `json:"premium"`
	DaysToExpiry        int        `json:"days_to_expiry"`
	Bid                 float64    `json:"bid"`
	Ask                 float64    `json:"ask"`
	Volume              float64    `json:"volume"`
	OpenInterest        float64    `json:"open_interest"`
	UnderlyingChangePct float64    `json:"underlying_change_pct"`
}

// ContractMetrics is a RawQuote with the derived risk/reward figures
// the filter and ranker operate on. ImpliedVol is zero when the solver
// did not converge; all other fields are always populated.
type ContractMetrics struct {
	RawQuote

	ImpliedVol           float64 `json:"implied_vol"`
	Gearing              float64 `json:"gearing"`
	Moneyness            float64 `json:"moneyness"`
	SpreadPct            float64 `json:"spread_pct"`
	Breakeven            float64 `json:"breakeven"`
	BreakevenDistancePct float64 `json:"breakeven_distance_pct"`
	TradeCount           int64   `json:"trade_count"`
}

// DisplayField is a presentation-only label/value pair attached to a
// candidate so downstream consumers (messages, dashboards) can show
// accurate numbers without recomputing them.
type DisplayField struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Style string `json:"style,omitempty"`
}

// Candidate is a contract that survived filtering, plus its display
// fields. Candidates live only within a single orchestrator run and
// are never mutated after construction.
type Candidate struct {
	ContractMetrics

	Score   float64        `json:"score"`
	Display []DisplayField `json:"display"`
}
