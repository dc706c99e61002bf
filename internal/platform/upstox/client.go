// Package upstox is the REST gateway to the Upstox v2 brokerage API: order
// placement, cancellation, status lookup, OAuth token exchange, and the
// exchange instrument master.
package upstox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
)

const (
	// maxOrderRetries is how many times a failed placement is retried after
	// the initial attempt. Every failure is retried; the API exposes no way
	// to tell a retryable fault from a terminal one.
	maxOrderRetries = 3
	// orderRetryDelay is the fixed pause between placement attempts.
	orderRetryDelay = 2 * time.Second
)

// Alerter is the outbound notification surface the client needs. Delivery
// failures are swallowed.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the Upstox API credentials and endpoints.
type Config struct {
	BaseURL        string // e.g. "https://api.upstox.com/v2"
	APIKey         string
	APISecret      string
	RedirectURI    string
	InstrumentsURL string // instrument master override, mainly for tests
}

// Client is the typed Upstox REST client. Every order call reads the current
// access token from the token store; an absent or stale token is a
// precondition failure and is never retried.
type Client struct {
	cfg        Config
	tokens     domain.TokenStore
	httpClient *http.Client
	alerter    Alerter
	logger     *slog.Logger

	// retryDelay is overridable in tests.
	retryDelay time.Duration
}

// NewClient creates an Upstox client backed by the given token store. The
// alerter may be nil, in which case placement notifications are skipped.
func NewClient(cfg Config, tokens domain.TokenStore, alerter Alerter, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.upstox.com/v2"
	}
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		alerter:    alerter,
		logger:     logger.With(slog.String("component", "upstox")),
		retryDelay: orderRetryDelay,
	}
}

// PlaceOrder submits an order, retrying any failure up to the fixed bound
// with a fixed delay between attempts. On success it returns the broker
// order ID and fires a best-effort notification naming the leg, side,
// quantity, and ID.
func (c *Client) PlaceOrder(ctx context.Context, spec domain.OrderSpec, label string) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	req := toOrderRequest(spec)

	var lastErr error
	for attempt := 0; attempt <= maxOrderRetries; attempt++ {
		if attempt > 0 {
			c.logger.InfoContext(ctx, "retrying order placement",
				slog.String("label", label),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", maxOrderRetries),
			)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("upstox: place order %s: %w", label, ctx.Err())
			}
		}

		orderID, err := c.placeOnce(ctx, token, req)
		if err == nil {
			c.logger.InfoContext(ctx, "order placed",
				slog.String("label", label),
				slog.String("order_id", orderID),
				slog.String("side", string(spec.TransactionType)),
				slog.Int("quantity", spec.Quantity),
			)
			c.notify(ctx, label, spec, orderID)
			return orderID, nil
		}
		lastErr = err
		c.logger.WarnContext(ctx, "order placement failed",
			slog.String("label", label),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	return "", fmt.Errorf("upstox: place order %s after %d retries: %w", label, maxOrderRetries, lastErr)
}

// placeOnce performs a single placement attempt.
func (c *Client) placeOnce(ctx context.Context, token string, req orderRequest) (string, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/order/place", token, req)
	if err != nil {
		return "", err
	}

	var resp placeOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode place response: %w", err)
	}

	if status != http.StatusOK || resp.Status != "success" {
		msg := "unknown error"
		if len(resp.Errors) > 0 {
			msg = fmt.Sprintf("%s (%s)", resp.Errors[0].Message, resp.Errors[0].ErrorCode)
		}
		return "", fmt.Errorf("HTTP %d: %s", status, msg)
	}
	if resp.Data.OrderID == "" {
		return "", fmt.Errorf("HTTP %d: success response without order_id", status)
	}

	return resp.Data.OrderID, nil
}

// CancelOrder cancels an open order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	path := "/order/cancel?order_id=" + url.QueryEscape(orderID)
	_, status, err := c.do(ctx, http.MethodDelete, path, token, nil)
	if err != nil {
		return fmt.Errorf("upstox: cancel order %s: %w", orderID, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upstox: cancel order %s: HTTP %d", orderID, status)
	}

	c.logger.InfoContext(ctx, "order cancelled", slog.String("order_id", orderID))
	return nil
}

// GetOrderStatus returns the normalized status of an order.
func (c *Client) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	details, err := c.orderDetails(ctx, orderID)
	if err != nil {
		return domain.OrderStatusUnknown, err
	}
	return statusFromBroker(details.Data.Status), nil
}

// GetFilledQuantity returns the executed quantity of an order.
func (c *Client) GetFilledQuantity(ctx context.Context, orderID string) (int, error) {
	details, err := c.orderDetails(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return details.Data.FilledQuantity, nil
}

func (c *Client) orderDetails(ctx context.Context, orderID string) (orderDetailsResponse, error) {
	var resp orderDetailsResponse

	token, err := c.token(ctx)
	if err != nil {
		return resp, err
	}

	path := "/order/details?order_id=" + url.QueryEscape(orderID)
	body, status, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return resp, fmt.Errorf("upstox: order details %s: %w", orderID, err)
	}
	if status != http.StatusOK {
		return resp, fmt.Errorf("upstox: order details %s: HTTP %d", orderID, status)
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, fmt.Errorf("upstox: decode order details %s: %w", orderID, err)
	}
	return resp, nil
}

// token reads the current credential; an invalid credential maps to
// domain.ErrNoCredential.
func (c *Client) token(ctx context.Context) (string, error) {
	cred, err := c.tokens.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("upstox: %w", err)
	}
	return cred.Token, nil
}

// do builds, sends, and reads an authenticated JSON request.
func (c *Client) do(ctx context.Context, method, path, token string, reqBody any) ([]byte, int, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// notify fires the best-effort placement notification.
func (c *Client) notify(ctx context.Context, label string, spec domain.OrderSpec, orderID string) {
	if c.alerter == nil {
		return
	}
	msg := fmt.Sprintf("✅ %s: %s %d | ID: %s", label, spec.TransactionType, spec.Quantity, orderID)
	_ = c.alerter.Notify(ctx, "order", label, msg)
}

// Compile-time interface check.
var _ domain.Broker = (*Client)(nil)
