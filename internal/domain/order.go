package domain

// TransactionType is the side of an order as the broker sees it.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Opposite returns the reversing side for an exit or bracket leg.
func (t TransactionType) Opposite() TransactionType {
	if t == TransactionBuy {
		return TransactionSell
	}
	return TransactionBuy
}

// Valid reports whether t is one of the two accepted sides.
func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// OrderType is the broker order type.
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopMarket OrderType = "SL-M"
)

// OrderStatus is the normalized lifecycle state reported by the broker.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusComplete  OrderStatus = "complete"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusUnknown   OrderStatus = "unknown"
)

// Terminal reports whether no further transitions are possible for s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusComplete, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderSpec is the outbound order payload sent to the broker gateway.
// Price carries the limit price for LIMIT orders and is zero for market
// orders; TriggerPrice is only meaningful for SL-M orders.
type OrderSpec struct {
	Quantity        int
	Product         string
	Validity        string
	Price           float64
	InstrumentToken string
	OrderType       OrderType
	TransactionType TransactionType
	DisclosedQty    int
	TriggerPrice    float64
	IsAMO           bool
}

// Intraday order defaults used by every order this service places.
const (
	ProductIntraday = "I"
	ValidityDay     = "DAY"
)

// MarketOrder builds an intraday market order spec.
func MarketOrder(instrumentToken string, side TransactionType, qty int) OrderSpec {
	return OrderSpec{
		Quantity:        qty,
		Product:         ProductIntraday,
		Validity:        ValidityDay,
		InstrumentToken: instrumentToken,
		OrderType:       OrderTypeMarket,
		TransactionType: side,
	}
}

// LimitOrder builds an intraday limit order spec at the given price.
func LimitOrder(instrumentToken string, side TransactionType, qty int, price float64) OrderSpec {
	return OrderSpec{
		Quantity:        qty,
		Product:         ProductIntraday,
		Validity:        ValidityDay,
		Price:           price,
		InstrumentToken: instrumentToken,
		OrderType:       OrderTypeLimit,
		TransactionType: side,
	}
}

// StopMarketOrder builds an intraday stop-market order spec with the given
// trigger price.
func StopMarketOrder(instrumentToken string, side TransactionType, qty int, trigger float64) OrderSpec {
	return OrderSpec{
		Quantity:        qty,
		Product:         ProductIntraday,
		Validity:        ValidityDay,
		InstrumentToken: instrumentToken,
		OrderType:       OrderTypeStopMarket,
		TransactionType: side,
		TriggerPrice:    trigger,
	}
}
