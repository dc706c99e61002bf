package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tradewire/ictbot/internal/service"
)

// PositionCloser defines the close operations the handler requires.
type PositionCloser interface {
	ManualClose(ctx context.Context, symbol string) error
	CloseAll(ctx context.Context) (service.CloseAllResult, error)
}

// CloseHandler serves the manual close endpoints.
type CloseHandler struct {
	trades PositionCloser
	logger *slog.Logger
}

// NewCloseHandler creates a CloseHandler.
func NewCloseHandler(trades PositionCloser, logger *slog.Logger) *CloseHandler {
	return &CloseHandler{trades: trades, logger: logger}
}

// CloseOne closes the position for one symbol.
// POST /close/{symbol}
func (h *CloseHandler) CloseOne(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	if err := h.trades.ManualClose(r.Context(), symbol); err != nil {
		h.logger.ErrorContext(r.Context(), "manual close failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "closed",
		"symbol": symbol,
	})
}

// CloseAll closes every open position.
// POST /close_all
func (h *CloseHandler) CloseAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.trades.CloseAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "close all failed",
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
