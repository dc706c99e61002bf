package domain

import (
	"context"
	"time"
)

// PositionStore is the durable book of open positions, keyed by symbol.
// Every mutation is a full-record replace with last-write-wins semantics.
type PositionStore interface {
	// Put inserts or replaces the record for pos.Symbol.
	Put(ctx context.Context, pos Position) error
	// Get returns the record for symbol, or ErrNotFound.
	Get(ctx context.Context, symbol string) (Position, error)
	// Delete removes the record for symbol. Deleting an absent record is a
	// no-op, not an error.
	Delete(ctx context.Context, symbol string) error
	// List returns every stored position.
	List(ctx context.Context) ([]Position, error)
}

// TokenStore is the durable single-record cache of the brokerage credential.
type TokenStore interface {
	// Save replaces the stored credential.
	Save(ctx context.Context, cred Credential) error
	// Get returns the stored credential. It returns ErrNoCredential when no
	// credential exists or the stored one has aged past its validity window.
	Get(ctx context.Context) (Credential, error)
}

// LockManager provides per-key advisory locks across invocations.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL, returning an
	// unlock function. It returns ErrLockHeld when another party holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Broker is the gateway to the brokerage order API. Implementations own
// retry-with-backoff for placement; status and cancel calls are single-shot.
type Broker interface {
	// PlaceOrder submits spec and returns the broker order ID. The label
	// names the leg ("ENTRY ORDER", "STOP LOSS", ...) for logs and alerts.
	PlaceOrder(ctx context.Context, spec OrderSpec, label string) (string, error)
	// CancelOrder cancels an open order. Cancelling an already filled or
	// cancelled order surfaces the broker's error; callers treat it as a
	// no-op.
	CancelOrder(ctx context.Context, orderID string) error
	// GetOrderStatus returns the normalized status of an order.
	GetOrderStatus(ctx context.Context, orderID string) (OrderStatus, error)
	// GetFilledQuantity returns the executed quantity of an order.
	GetFilledQuantity(ctx context.Context, orderID string) (int, error)
}

// InstrumentResolver maps a normalized trading symbol to the broker's
// instrument key.
type InstrumentResolver interface {
	// Resolve returns the instrument key for symbol, or ErrSymbolNotFound.
	Resolve(ctx context.Context, symbol string) (string, error)
}

// InstrumentCache is the shared cache behind the resolver. It is
// best-effort: losing it only costs a re-download of the instrument master.
type InstrumentCache interface {
	Get(ctx context.Context, symbol string) (string, error)
	SetAll(ctx context.Context, keys map[string]string) error
}

// MarketCalendar answers whether the exchange accepts orders at an instant.
type MarketCalendar interface {
	IsOpen(at time.Time) bool
}

// Journal records closed positions for later analysis. Writes are
// best-effort; a journal failure never blocks the trading path.
type Journal interface {
	Record(ctx context.Context, closed ClosedPosition) error
}

// PositionEvent is a lifecycle notification pushed to live subscribers.
type PositionEvent struct {
	Type     string    `json:"type"` // opened, partial_filled, closed, emergency_exit
	Symbol   string    `json:"symbol"`
	Position *Position `json:"position,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// EventSink receives position lifecycle events. Implementations must not
// block the caller.
type EventSink interface {
	Publish(event PositionEvent)
}
