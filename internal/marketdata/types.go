package marketdata

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/seongjae-dev/optionpulse/internal/models"
)

// flexNumber decodes a provider field that may arrive as a JSON number,
// a numeric string with thousands separators, null, or garbage. Any
// unusable value decodes to zero; a bad field must never fail the row.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	*f = 0

	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" || s == "-" {
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = flexNumber(v)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexNumber(v)
	}
	return nil
}

// wireQuote mirrors one element of the provider's snapshot array.
type wireQuote struct {
	Symbol              string     `json:"symbol"`
	Side                string     `json:"side"`
	Spot                flexNumber `json:"underlying_price"`
	Strike              flexNumber `json:"strike"`
	Premium             flexNumber `json:"premium"`
	DaysToExpiry        flexNumber `json:"days_to_expiry"`
	Bid                 flexNumber `json:"bid"`
	Ask                 flexNumber `json:"ask"`
	Volume              flexNumber `json:"volume"`
	OpenInterest        flexNumber `json:"open_interest"`
	UnderlyingChangePct flexNumber `json:"underlying_change_pct"`
}

func (w wireQuote) toRawQuote() models.RawQuote {
	side := models.SideCall
	if strings.EqualFold(strings.TrimSpace(w.Side), "put") || strings.EqualFold(strings.TrimSpace(w.Side), "p") {
		side = models.SidePut
	}

	return models.RawQuote{
		Symbol:              strings.TrimSpace(w.Symbol),
		Side:                side,
		Spot:                float64(w.Spot),
		Strike:              float64(w.Strike),
		Premium:             float64(w.Premium),
		DaysToExpiry:        int(w.DaysToExpiry),
		Bid:                 float64(w.Bid),
		Ask:                 float64(w.Ask),
		Volume:              float64(w.Volume),
		OpenInterest:        float64(w.OpenInterest),
		UnderlyingChangePct: float64(w.UnderlyingChangePct),
	}
}
