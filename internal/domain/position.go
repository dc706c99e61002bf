package domain

import "time"

// Direction is the exposure side of a position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// DirectionFor maps the entry side to the resulting exposure direction.
func DirectionFor(action TransactionType) Direction {
	if action == TransactionBuy {
		return DirectionLong
	}
	return DirectionShort
}

// BracketOrder is one protective/target leg attached to a position. Price is
// the limit price for take-profit legs and the trigger price for the
// stop-loss leg.
type BracketOrder struct {
	OrderID  string  `json:"order_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Position is the persisted record of one open position. There is at most one
// per symbol; the symbol is the store key.
type Position struct {
	Symbol        string          `json:"symbol"`
	Action        TransactionType `json:"action"` // entry side
	Direction     Direction       `json:"direction"`
	InstrumentKey string          `json:"instrument_key"`
	RequestedQty  int             `json:"requested_qty"`
	FilledQty     int             `json:"filled_qty"` // set once at entry-fill confirmation
	EntryOrderID  string          `json:"entry_order_id"`
	StopLoss      *BracketOrder   `json:"stop_loss,omitempty"`
	TakeProfit    *BracketOrder   `json:"take_profit,omitempty"`
	PartialTP     *BracketOrder   `json:"partial_tp,omitempty"`
	PartialFilled bool            `json:"partial_filled"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PartialQty returns the quantity of the partial take-profit leg, or 0 when
// no partial leg was placed.
func (p Position) PartialQty() int {
	if p.PartialTP == nil {
		return 0
	}
	return p.PartialTP.Quantity
}

// RemainingQty is the live exposure still to be exited. FilledQty never
// changes after the entry fill; the partial exit is subtracted here instead.
func (p Position) RemainingQty() int {
	if p.PartialFilled {
		return p.FilledQty - p.PartialQty()
	}
	return p.FilledQty
}

// BracketOrderIDs returns the non-empty order IDs of all bracket legs, in
// stop-loss, take-profit, partial order.
func (p Position) BracketOrderIDs() []string {
	var ids []string
	for _, b := range []*BracketOrder{p.StopLoss, p.TakeProfit, p.PartialTP} {
		if b != nil && b.OrderID != "" {
			ids = append(ids, b.OrderID)
		}
	}
	return ids
}

// CloseReason records why a position left the book.
type CloseReason string

const (
	CloseReasonTarget    CloseReason = "target"
	CloseReasonStop      CloseReason = "stop"
	CloseReasonReversal  CloseReason = "reversal"
	CloseReasonManual    CloseReason = "manual"
	CloseReasonEmergency CloseReason = "emergency"
)

// ClosedPosition is the journal record written when a position is removed
// from the book.
type ClosedPosition struct {
	Position Position    `json:"position"`
	Reason   CloseReason `json:"reason"`
	ClosedAt time.Time   `json:"closed_at"`
}
