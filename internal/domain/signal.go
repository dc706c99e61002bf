package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexFloat is a float64 that tolerates the sloppy numerics alerting systems
// emit: JSON numbers, numeric strings, null, and unexpanded template
// placeholders (strings containing braces) all decode without error.
// Anything unparsable decodes to 0.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = 0

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexFloat(num)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if strings.ContainsAny(s, "{}") {
		return nil
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*f = FlexFloat(v)
	}
	return nil
}

// Float returns the plain float64 value.
func (f FlexFloat) Float() float64 { return float64(f) }

// Signal is an inbound trading signal from the external alerting system.
// Price levels of 0 mean "leg not requested".
type Signal struct {
	Action     string    `json:"action"`
	Symbol     string    `json:"symbol"`
	Price      FlexFloat `json:"price"`
	StopLoss   FlexFloat `json:"sl"`
	TakeProfit FlexFloat `json:"tp"`
	PartialTP  FlexFloat `json:"partial_tp"`
	Qty        FlexFloat `json:"qty"`
	Risk       FlexFloat `json:"risk"`
	RiskReward FlexFloat `json:"rr"`
	Confluence FlexFloat `json:"confluence"`
	Regime     string    `json:"regime"`
	Killzone   string    `json:"killzone"`
}

// TransactionType returns the normalized entry side.
func (s Signal) TransactionType() TransactionType {
	return TransactionType(strings.ToUpper(strings.TrimSpace(s.Action)))
}

// CleanSymbol normalizes the symbol the way the instrument master keys it:
// uppercase with the exchange prefix and equity suffix stripped.
func (s Signal) CleanSymbol() string {
	return NormalizeSymbol(s.Symbol)
}

// Quantity returns the requested order quantity, rounded and clamped to at
// least one share.
func (s Signal) Quantity() int {
	q := int(math.Round(s.Qty.Float()))
	if q < 1 {
		return 1
	}
	return q
}

// NormalizeSymbol uppercases sym and strips the "NSE:" prefix and "-EQ"
// suffix used by charting platforms.
func NormalizeSymbol(sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	sym = strings.TrimPrefix(sym, "NSE:")
	sym = strings.TrimSuffix(sym, "-EQ")
	return strings.TrimSpace(sym)
}
