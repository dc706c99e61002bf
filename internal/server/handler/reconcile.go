package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tradewire/ictbot/internal/service"
)

// PositionReconciler defines the reconciliation trigger the handler requires.
type PositionReconciler interface {
	ReconcilePositions(ctx context.Context) (service.ReconcileReport, error)
}

// ReconcileHandler serves the reconciliation trigger endpoint.
type ReconcileHandler struct {
	reconciler PositionReconciler
	logger     *slog.Logger
}

// NewReconcileHandler creates a ReconcileHandler.
func NewReconcileHandler(reconciler PositionReconciler, logger *slog.Logger) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler, logger: logger}
}

// Check runs one reconciliation sweep and returns the report.
// POST /check_positions
func (h *ReconcileHandler) Check(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.ReconcilePositions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "reconciliation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
