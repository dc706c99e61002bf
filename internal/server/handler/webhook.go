package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/service"
)

// TradeOpener defines the methods the webhook handler requires from the
// service layer.
type TradeOpener interface {
	OpenPosition(ctx context.Context, sig domain.Signal) (service.OpenResult, error)
}

// WebhookHandler receives trading signals from the external alerting system.
type WebhookHandler struct {
	trades TradeOpener
	logger *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(trades TradeOpener, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{trades: trades, logger: logger}
}

// Receive parses an inbound signal and executes it.
// POST /webhook
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var sig domain.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h.logger.InfoContext(r.Context(), "signal received",
		slog.String("action", sig.Action),
		slog.String("symbol", sig.Symbol),
		slog.Float64("price", sig.Price.Float()),
	)

	res, err := h.trades.OpenPosition(r.Context(), sig)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "signal execution failed",
			slog.String("symbol", sig.Symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"result": res,
	})
}
