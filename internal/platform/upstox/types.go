package upstox

import "github.com/tradewire/ictbot/internal/domain"

// orderRequest is the wire form of an order placement request (Upstox v2).
type orderRequest struct {
	Quantity        int     `json:"quantity"`
	Product         string  `json:"product"`
	Validity        string  `json:"validity"`
	Price           float64 `json:"price"`
	InstrumentToken string  `json:"instrument_token"`
	OrderType       string  `json:"order_type"`
	TransactionType string  `json:"transaction_type"`
	DisclosedQty    int     `json:"disclosed_quantity"`
	TriggerPrice    float64 `json:"trigger_price"`
	IsAMO           bool    `json:"is_amo"`
}

func toOrderRequest(spec domain.OrderSpec) orderRequest {
	return orderRequest{
		Quantity:        spec.Quantity,
		Product:         spec.Product,
		Validity:        spec.Validity,
		Price:           spec.Price,
		InstrumentToken: spec.InstrumentToken,
		OrderType:       string(spec.OrderType),
		TransactionType: string(spec.TransactionType),
		DisclosedQty:    spec.DisclosedQty,
		TriggerPrice:    spec.TriggerPrice,
		IsAMO:           spec.IsAMO,
	}
}

// placeOrderResponse is the envelope returned by POST /order/place.
type placeOrderResponse struct {
	Status string `json:"status"`
	Data   struct {
		OrderID string `json:"order_id"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

// orderDetailsResponse is the envelope returned by GET /order/details.
type orderDetailsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status         string `json:"status"`
		FilledQuantity int    `json:"filled_quantity"`
	} `json:"data"`
}

// tokenResponse is the envelope returned by the authorization-code exchange.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// apiError is one entry of an Upstox error response.
type apiError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// instrumentRecord is one entry of the exchange instrument master.
type instrumentRecord struct {
	InstrumentType string `json:"instrument_type"`
	Exchange       string `json:"exchange"`
	TradingSymbol  string `json:"trading_symbol"`
}

// statusFromBroker normalizes the broker's free-form order status strings
// into the domain lifecycle states.
func statusFromBroker(s string) domain.OrderStatus {
	switch s {
	case "complete":
		return domain.OrderStatusComplete
	case "rejected":
		return domain.OrderStatusRejected
	case "cancelled":
		return domain.OrderStatusCancelled
	case "open", "pending", "trigger pending", "open pending",
		"validation pending", "put order req received",
		"modify validation pending", "modify pending":
		return domain.OrderStatusPending
	default:
		return domain.OrderStatusUnknown
	}
}
