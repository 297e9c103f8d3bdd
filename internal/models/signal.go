package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision is the AI verdict for one side of the market.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionWait Decision = "WAIT"
)

// DefaultReasoning is the placeholder carried by a suggestion until AI
// enrichment succeeds.
const DefaultReasoning = "No analysis performed."

// Suggestion is one side's AI decision, enriched with the matching
// candidate's display data once a symbol is known.
type Suggestion struct {
	Decision   Decision          `json:"decision"`
	Symbol     string            `json:"symbol,omitempty"`
	EntryPrice decimal.Decimal   `json:"entry_price"`
	Reasoning  string            `json:"reasoning"`
	Tags       map[string]string `json:"tags,omitempty"`
	Display    []DisplayField    `json:"display,omitempty"`
}

// WaitSuggestion returns the default suggestion used before (or in
// place of) a successful AI decision.
func WaitSuggestion() Suggestion {
	return Suggestion{
		Decision:  DecisionWait,
		Reasoning: DefaultReasoning,
	}
}

// IsWait reports whether the suggestion amounts to "nothing to suggest".
func (s Suggestion) IsWait() bool {
	return s.Decision != DecisionBuy
}

// Signal is the persisted outcome of one notify-worthy orchestrator
// run. Immutable after creation except for NotificationSent.
type Signal struct {
	ID               string      `json:"id"`
	CreatedAt        time.Time   `json:"created_at"`
	MarketOpen       bool        `json:"market_open"`
	Sentiment        string      `json:"sentiment"`
	CallSuggestion   Suggestion  `json:"call_suggestion"`
	PutSuggestion    Suggestion  `json:"put_suggestion"`
	SuperCalls       []Candidate `json:"super_calls"`
	SuperPuts        []Candidate `json:"super_puts"`
	NotificationSent bool        `json:"notification_sent"`
}
