package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tradewire/ictbot/internal/alert"
	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/notify"
)

// reconcileConcurrency bounds how many positions are checked in parallel.
const reconcileConcurrency = 4

// ReconcileReport summarizes one reconciliation sweep.
type ReconcileReport struct {
	Checked      int      `json:"checked"`
	PartialFills []string `json:"partial_fills"`
	TargetsHit   []string `json:"targets_hit"`
	StopsHit     []string `json:"stops_hit"`
	Errors       []string `json:"errors"`
	At           string   `json:"at"`
}

// Reconciler walks the open position book and reconciles each record against
// live broker order state: partial fills first, then full take-profit, then
// stop-loss. A sweep with no status changes performs no writes.
type Reconciler struct {
	positions domain.PositionStore
	broker    domain.Broker
	notifier  *notify.Notifier
	journal   domain.Journal   // optional
	events    domain.EventSink // optional
	logger    *slog.Logger

	now func() time.Time
}

// NewReconciler wires a Reconciler. journal and events may be nil.
func NewReconciler(
	positions domain.PositionStore,
	broker domain.Broker,
	notifier *notify.Notifier,
	journal domain.Journal,
	events domain.EventSink,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		positions: positions,
		broker:    broker,
		notifier:  notifier,
		journal:   journal,
		events:    events,
		logger:    logger.With(slog.String("component", "reconciler")),
		now:       time.Now,
	}
}

// ReconcilePositions runs one sweep over every stored position. Per-symbol
// failures are collected into the report, never aborting the sweep.
func (r *Reconciler) ReconcilePositions(ctx context.Context) (ReconcileReport, error) {
	positions, err := r.positions.List(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("service: reconcile list: %w", err)
	}

	report := ReconcileReport{
		Checked:      len(positions),
		PartialFills: []string{},
		TargetsHit:   []string{},
		StopsHit:     []string{},
		Errors:       []string{},
		At:           r.now().UTC().Format(time.RFC3339),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, pos := range positions {
		pos := pos
		g.Go(func() error {
			outcome, err := r.reconcileOne(gctx, pos)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", pos.Symbol, err))
				return nil
			}
			switch outcome {
			case outcomePartial:
				report.PartialFills = append(report.PartialFills, pos.Symbol)
			case outcomeTarget:
				report.TargetsHit = append(report.TargetsHit, pos.Symbol)
			case outcomeStop:
				report.StopsHit = append(report.StopsHit, pos.Symbol)
			}
			return nil
		})
	}
	_ = g.Wait()
	return report, nil
}

type reconcileOutcome int

const (
	outcomeNone reconcileOutcome = iota
	outcomePartial
	outcomeTarget
	outcomeStop
)

// reconcileOne applies the three checks in order. The outcome reports the
// last state change applied; a transient status error on one check skips it
// for this sweep and the remaining checks still run.
func (r *Reconciler) reconcileOne(ctx context.Context, pos domain.Position) (reconcileOutcome, error) {
	log := r.logger.With(slog.String("symbol", pos.Symbol))
	outcome := outcomeNone

	// Partial check: a filled partial leg means the stop-loss now covers too
	// much and must be re-placed for the remaining quantity.
	if pos.PartialTP != nil && !pos.PartialFilled {
		status, err := r.broker.GetOrderStatus(ctx, pos.PartialTP.OrderID)
		switch {
		case err != nil:
			log.WarnContext(ctx, "partial status poll failed", slog.String("error", err.Error()))
		case status == domain.OrderStatusComplete:
			updated, err := r.applyPartialFill(ctx, pos)
			if err != nil {
				return outcomeNone, err
			}
			pos = updated
			outcome = outcomePartial
		}
	}

	if pos.TakeProfit != nil {
		status, err := r.broker.GetOrderStatus(ctx, pos.TakeProfit.OrderID)
		switch {
		case err != nil:
			log.WarnContext(ctx, "take-profit status poll failed", slog.String("error", err.Error()))
		case status == domain.OrderStatusComplete:
			if err := r.closeOut(ctx, pos, domain.CloseReasonTarget); err != nil {
				return outcome, err
			}
			title, body := alert.TargetHit(pos.Symbol, r.now())
			_ = r.notifier.Notify(ctx, EventPosition, title, body)
			return outcomeTarget, nil
		}
	}

	if pos.StopLoss != nil {
		status, err := r.broker.GetOrderStatus(ctx, pos.StopLoss.OrderID)
		switch {
		case err != nil:
			log.WarnContext(ctx, "stop-loss status poll failed", slog.String("error", err.Error()))
		case status == domain.OrderStatusComplete:
			if err := r.closeOut(ctx, pos, domain.CloseReasonStop); err != nil {
				return outcome, err
			}
			title, body := alert.StopHit(pos.Symbol, r.now())
			_ = r.notifier.Notify(ctx, EventPosition, title, body)
			return outcomeStop, nil
		}
	}

	return outcome, nil
}

// applyPartialFill marks the partial leg filled and swaps the stop-loss for
// one sized to the remaining quantity. A stop replacement failure leaves no
// protection, so the remaining exposure is emergency-exited and the record
// dropped.
func (r *Reconciler) applyPartialFill(ctx context.Context, pos domain.Position) (domain.Position, error) {
	log := r.logger.With(slog.String("symbol", pos.Symbol))
	pos.PartialFilled = true
	remaining := pos.RemainingQty()

	if pos.StopLoss != nil && remaining > 0 {
		if err := r.broker.CancelOrder(ctx, pos.StopLoss.OrderID); err != nil {
			log.WarnContext(ctx, "stale stop-loss cancel failed", slog.String("error", err.Error()))
		}
		spec := domain.StopMarketOrder(pos.InstrumentKey, pos.Action.Opposite(), remaining, pos.StopLoss.Price)
		newID, err := r.broker.PlaceOrder(ctx, spec, labelStopLoss)
		if err != nil {
			log.ErrorContext(ctx, "stop-loss replacement failed, unwinding", slog.String("error", err.Error()))
			exitSpec := domain.MarketOrder(pos.InstrumentKey, pos.Action.Opposite(), remaining)
			if _, exitErr := r.broker.PlaceOrder(ctx, exitSpec, labelEmergency); exitErr != nil {
				title, body := alert.EmergencyExit(pos.Symbol, remaining, "EMERGENCY EXIT FAILED — manual intervention required")
				_ = r.notifier.NotifyCritical(ctx, title, body)
				return pos, fmt.Errorf("stop replacement and emergency exit failed: %w", exitErr)
			}
			title, body := alert.EmergencyExit(pos.Symbol, remaining, "stop-loss replacement failed after partial fill")
			_ = r.notifier.NotifyCritical(ctx, title, body)
			if err := r.closeOut(ctx, pos, domain.CloseReasonEmergency); err != nil {
				return pos, err
			}
			return pos, fmt.Errorf("stop replacement failed: %w: %w", domain.ErrProtectionFailed, err)
		}
		pos.StopLoss = &domain.BracketOrder{OrderID: newID, Quantity: remaining, Price: pos.StopLoss.Price}
	}

	if err := r.positions.Put(ctx, pos); err != nil {
		return pos, fmt.Errorf("persist partial fill: %w", err)
	}

	title, body := alert.PartialTaken(pos.Symbol, pos.PartialQty(), remaining, r.now())
	_ = r.notifier.Notify(ctx, EventPosition, title, body)
	r.publish(domain.PositionEvent{Type: "partial_filled", Symbol: pos.Symbol, Position: &pos, At: r.now()})
	log.InfoContext(ctx, "partial fill applied",
		slog.Int("exited", pos.PartialQty()),
		slog.Int("remaining", remaining),
	)
	return pos, nil
}

// closeOut removes a position whose exit already happened at the broker:
// cancel whatever bracket legs are still open, delete, journal.
func (r *Reconciler) closeOut(ctx context.Context, pos domain.Position, reason domain.CloseReason) error {
	var survivors []string
	switch reason {
	case domain.CloseReasonTarget:
		// TP filled; SL and any unfilled partial are stale.
		if pos.StopLoss != nil {
			survivors = append(survivors, pos.StopLoss.OrderID)
		}
		if pos.PartialTP != nil && !pos.PartialFilled {
			survivors = append(survivors, pos.PartialTP.OrderID)
		}
	case domain.CloseReasonStop:
		if pos.TakeProfit != nil {
			survivors = append(survivors, pos.TakeProfit.OrderID)
		}
		if pos.PartialTP != nil && !pos.PartialFilled {
			survivors = append(survivors, pos.PartialTP.OrderID)
		}
	default:
		survivors = pos.BracketOrderIDs()
	}
	for _, id := range survivors {
		if err := r.broker.CancelOrder(ctx, id); err != nil {
			r.logger.WarnContext(ctx, "stale bracket cancel failed",
				slog.String("symbol", pos.Symbol),
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := r.positions.Delete(ctx, pos.Symbol); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if r.journal != nil {
		closed := domain.ClosedPosition{Position: pos, Reason: reason, ClosedAt: r.now()}
		if err := r.journal.Record(ctx, closed); err != nil {
			r.logger.WarnContext(ctx, "journal write failed",
				slog.String("symbol", pos.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	r.publish(domain.PositionEvent{Type: "closed", Symbol: pos.Symbol, Reason: string(reason), At: r.now()})
	return nil
}

func (r *Reconciler) publish(event domain.PositionEvent) {
	if r.events != nil {
		r.events.Publish(event)
	}
}
