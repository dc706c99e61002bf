// Package service holds the order lifecycle orchestration: signal intake,
// entry execution with fill verification, protective bracket placement,
// reconciliation of live order state, and the close paths.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tradewire/ictbot/internal/alert"
	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/notify"
)

// Notification event types routed through the notifier allow-list.
const (
	EventSignal   = "signal"
	EventPosition = "position"
	EventError    = "error"
)

// Order leg labels used in logs and placement alerts.
const (
	labelEntry     = "ENTRY ORDER"
	labelPartialTP = "PARTIAL TP"
	labelTakeProf  = "TAKE PROFIT"
	labelStopLoss  = "STOP LOSS"
	labelExit      = "EXIT ORDER"
	labelEmergency = "EMERGENCY EXIT"
	labelReversal  = "REVERSAL EXIT"
)

// TradeConfig tunes the fill-verification loop and the per-symbol lock.
type TradeConfig struct {
	FillPollInterval time.Duration
	FillTimeout      time.Duration
	LockTTL          time.Duration
}

// DefaultTradeConfig returns the production timings.
func DefaultTradeConfig() TradeConfig {
	return TradeConfig{
		FillPollInterval: 2 * time.Second,
		FillTimeout:      30 * time.Second,
		LockTTL:          60 * time.Second,
	}
}

// OpenResult reports the order IDs created by a successful OpenPosition.
type OpenResult struct {
	Symbol           string `json:"symbol"`
	EntryOrderID     string `json:"entry_order_id"`
	FilledQty        int    `json:"filled_qty"`
	StopLossOrderID  string `json:"sl_order_id,omitempty"`
	TakeProfitID     string `json:"tp_order_id,omitempty"`
	PartialTPOrderID string `json:"partial_tp_order_id,omitempty"`
}

// TradeService orchestrates the position lifecycle against the broker
// gateway and the position store.
type TradeService struct {
	positions domain.PositionStore
	broker    domain.Broker
	resolver  domain.InstrumentResolver
	locks     domain.LockManager
	calendar  domain.MarketCalendar
	notifier  *notify.Notifier
	journal   domain.Journal   // optional
	events    domain.EventSink // optional
	logger    *slog.Logger
	cfg       TradeConfig

	now func() time.Time
}

// NewTradeService wires a TradeService. journal and events may be nil; both
// are best-effort side channels.
func NewTradeService(
	positions domain.PositionStore,
	broker domain.Broker,
	resolver domain.InstrumentResolver,
	locks domain.LockManager,
	calendar domain.MarketCalendar,
	notifier *notify.Notifier,
	journal domain.Journal,
	events domain.EventSink,
	cfg TradeConfig,
	logger *slog.Logger,
) *TradeService {
	def := DefaultTradeConfig()
	if cfg.FillPollInterval <= 0 {
		cfg.FillPollInterval = def.FillPollInterval
	}
	if cfg.FillTimeout <= 0 {
		cfg.FillTimeout = def.FillTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = def.LockTTL
	}
	return &TradeService{
		positions: positions,
		broker:    broker,
		resolver:  resolver,
		locks:     locks,
		calendar:  calendar,
		notifier:  notifier,
		journal:   journal,
		events:    events,
		logger:    logger.With(slog.String("component", "trade")),
		cfg:       cfg,
		now:       time.Now,
	}
}

// OpenPosition executes a signal end to end: validation, reversal of any
// opposite exposure, market entry, fill verification, and the protective
// bracket. A position is persisted only once its stop-loss is on the book.
func (s *TradeService) OpenPosition(ctx context.Context, sig domain.Signal) (OpenResult, error) {
	action := sig.TransactionType()
	symbol := sig.CleanSymbol()
	log := s.logger.With(slog.String("symbol", symbol), slog.String("action", string(action)))

	if !action.Valid() {
		return OpenResult{}, fmt.Errorf("service: action %q: %w", sig.Action, domain.ErrInvalidAction)
	}
	if symbol == "" {
		return OpenResult{}, fmt.Errorf("service: empty symbol: %w", domain.ErrInvalidAction)
	}
	if !s.calendar.IsOpen(s.now()) {
		title, body := alert.Rejected(string(action), symbol, "Market closed")
		_ = s.notifier.Notify(ctx, EventError, title, body)
		return OpenResult{}, fmt.Errorf("service: %s: %w", symbol, domain.ErrMarketClosed)
	}

	instrumentKey, err := s.resolver.Resolve(ctx, symbol)
	if err != nil {
		title, body := alert.Rejected(string(action), symbol, "Unknown symbol")
		_ = s.notifier.Notify(ctx, EventError, title, body)
		return OpenResult{}, fmt.Errorf("service: resolve %s: %w", symbol, err)
	}

	unlock, err := s.locks.Acquire(ctx, "position:"+symbol, s.cfg.LockTTL)
	if err != nil {
		return OpenResult{}, fmt.Errorf("service: lock %s: %w", symbol, err)
	}
	defer unlock()

	if existing, err := s.positions.Get(ctx, symbol); err == nil {
		if existing.Action == action {
			log.InfoContext(ctx, "duplicate signal for open position, skipping")
			title, body := alert.Rejected(string(action), symbol, "Position already open in same direction")
			_ = s.notifier.Notify(ctx, EventError, title, body)
			return OpenResult{}, fmt.Errorf("service: %s already open %s: %w", symbol, existing.Direction, domain.ErrInvalidAction)
		}
		log.InfoContext(ctx, "reversal signal, closing existing position",
			slog.String("existing_direction", string(existing.Direction)),
		)
		if err := s.closeVerified(ctx, existing); err != nil {
			return OpenResult{}, fmt.Errorf("service: reverse %s: %w", symbol, err)
		}
	} else if !isNotFound(err) {
		return OpenResult{}, fmt.Errorf("service: load position %s: %w", symbol, err)
	}

	title, body := alert.Signal(sig, s.now())
	_ = s.notifier.Notify(ctx, EventSignal, title, body)

	qty := sig.Quantity()
	entryID, err := s.broker.PlaceOrder(ctx, domain.MarketOrder(instrumentKey, action, qty), labelEntry)
	if err != nil {
		title, body := alert.EntryFailed(symbol, action, "Order placement failed after retries")
		_ = s.notifier.Notify(ctx, EventError, title, body)
		return OpenResult{}, fmt.Errorf("service: entry %s: %w: %w", symbol, domain.ErrEntryFailed, err)
	}
	log.InfoContext(ctx, "entry order placed", slog.String("order_id", entryID), slog.Int("qty", qty))

	status := s.waitForFill(ctx, entryID)
	if status != domain.OrderStatusComplete {
		title, body := alert.EntryFailed(symbol, action, fmt.Sprintf("Entry not filled (status: %s)", status))
		_ = s.notifier.Notify(ctx, EventError, title, body)
		return OpenResult{}, fmt.Errorf("service: entry %s status %s: %w", symbol, status, domain.ErrEntryNotFilled)
	}

	filled, err := s.broker.GetFilledQuantity(ctx, entryID)
	if err != nil || filled <= 0 {
		// Status said complete; trust the requested quantity.
		log.WarnContext(ctx, "filled quantity unavailable, assuming requested",
			slog.Int("requested", qty),
		)
		filled = qty
	}

	pos := domain.Position{
		Symbol:        symbol,
		Action:        action,
		Direction:     domain.DirectionFor(action),
		InstrumentKey: instrumentKey,
		RequestedQty:  qty,
		FilledQty:     filled,
		EntryOrderID:  entryID,
		CreatedAt:     s.now(),
	}
	exitSide := action.Opposite()

	// Partial take-profit: half the fill, only worth placing with 2+ shares.
	partialQty := 0
	if sig.PartialTP.Float() > 0 && filled >= 2 {
		partialQty = filled / 2
		spec := domain.LimitOrder(instrumentKey, exitSide, partialQty, sig.PartialTP.Float())
		if id, err := s.broker.PlaceOrder(ctx, spec, labelPartialTP); err != nil {
			log.ErrorContext(ctx, "partial take-profit placement failed", slog.String("error", err.Error()))
			partialQty = 0
		} else {
			pos.PartialTP = &domain.BracketOrder{OrderID: id, Quantity: partialQty, Price: sig.PartialTP.Float()}
		}
	}

	if remaining := filled - partialQty; sig.TakeProfit.Float() > 0 && remaining > 0 {
		spec := domain.LimitOrder(instrumentKey, exitSide, remaining, sig.TakeProfit.Float())
		if id, err := s.broker.PlaceOrder(ctx, spec, labelTakeProf); err != nil {
			log.ErrorContext(ctx, "take-profit placement failed", slog.String("error", err.Error()))
		} else {
			pos.TakeProfit = &domain.BracketOrder{OrderID: id, Quantity: remaining, Price: sig.TakeProfit.Float()}
		}
	}

	// The stop-loss is the one leg the position cannot live without. A signal
	// without an SL price opts out of protection; the position is persisted
	// unprotected rather than sending a zero-trigger order to the broker.
	var slID string
	if sig.StopLoss.Float() > 0 {
		slSpec := domain.StopMarketOrder(instrumentKey, exitSide, filled, sig.StopLoss.Float())
		slID, err = s.broker.PlaceOrder(ctx, slSpec, labelStopLoss)
		if err != nil {
			log.ErrorContext(ctx, "stop-loss placement failed, unwinding", slog.String("error", err.Error()))
			s.cancelBrackets(ctx, pos)
			s.emergencyExit(ctx, pos, "stop-loss placement failed")
			return OpenResult{}, fmt.Errorf("service: stop-loss %s: %w: %w", symbol, domain.ErrProtectionFailed, err)
		}
		pos.StopLoss = &domain.BracketOrder{OrderID: slID, Quantity: filled, Price: sig.StopLoss.Float()}
	} else {
		log.WarnContext(ctx, "signal carries no stop-loss price, position unprotected")
	}

	if err := s.positions.Put(ctx, pos); err != nil {
		// The bracket is live; losing the record would orphan it.
		log.ErrorContext(ctx, "position persist failed, unwinding", slog.String("error", err.Error()))
		s.cancelBrackets(ctx, pos)
		s.emergencyExit(ctx, pos, "position persist failed")
		return OpenResult{}, fmt.Errorf("service: persist %s: %w", symbol, err)
	}

	s.publish(domain.PositionEvent{Type: "opened", Symbol: symbol, Position: &pos, At: s.now()})
	title, body = alert.PositionOpened(pos, s.now())
	_ = s.notifier.Notify(ctx, EventPosition, title, body)
	log.InfoContext(ctx, "position opened",
		slog.Int("filled", filled),
		slog.String("sl_order_id", slID),
	)

	res := OpenResult{
		Symbol:          symbol,
		EntryOrderID:    entryID,
		FilledQty:       filled,
		StopLossOrderID: slID,
	}
	if pos.TakeProfit != nil {
		res.TakeProfitID = pos.TakeProfit.OrderID
	}
	if pos.PartialTP != nil {
		res.PartialTPOrderID = pos.PartialTP.OrderID
	}
	return res, nil
}

// ManualClose closes the position for symbol: cancel bracket legs, market
// exit the remaining quantity, remove the record.
func (s *TradeService) ManualClose(ctx context.Context, symbol string) error {
	symbol = domain.NormalizeSymbol(symbol)
	pos, err := s.positions.Get(ctx, symbol)
	if err != nil {
		return fmt.Errorf("service: close %s: %w", symbol, err)
	}
	return s.close(ctx, pos, domain.CloseReasonManual)
}

// CloseAllResult summarizes a CloseAll sweep.
type CloseAllResult struct {
	Closed []string `json:"closed"`
	Failed []string `json:"failed"`
}

// CloseAll closes every open position, continuing past individual failures.
func (s *TradeService) CloseAll(ctx context.Context) (CloseAllResult, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return CloseAllResult{}, fmt.Errorf("service: close all: %w", err)
	}
	res := CloseAllResult{Closed: []string{}, Failed: []string{}}
	for _, pos := range positions {
		if err := s.close(ctx, pos, domain.CloseReasonManual); err != nil {
			s.logger.ErrorContext(ctx, "close failed",
				slog.String("symbol", pos.Symbol),
				slog.String("error", err.Error()),
			)
			res.Failed = append(res.Failed, pos.Symbol)
			continue
		}
		res.Closed = append(res.Closed, pos.Symbol)
	}
	return res, nil
}

// close cancels the bracket, exits remaining exposure at market, deletes the
// record and journals the closure. The exit is not fill-verified.
func (s *TradeService) close(ctx context.Context, pos domain.Position, reason domain.CloseReason) error {
	s.cancelBrackets(ctx, pos)

	if remaining := pos.RemainingQty(); remaining > 0 {
		spec := domain.MarketOrder(pos.InstrumentKey, pos.Action.Opposite(), remaining)
		if _, err := s.broker.PlaceOrder(ctx, spec, labelExit); err != nil {
			return fmt.Errorf("service: exit %s: %w: %w", pos.Symbol, domain.ErrExitFailed, err)
		}
	}
	if err := s.positions.Delete(ctx, pos.Symbol); err != nil {
		return fmt.Errorf("service: delete %s: %w", pos.Symbol, err)
	}
	s.record(ctx, pos, reason)
	s.publish(domain.PositionEvent{Type: "closed", Symbol: pos.Symbol, Reason: string(reason), At: s.now()})
	_ = s.notifier.Notify(ctx, EventPosition, "🔒 POSITION CLOSED",
		fmt.Sprintf("Symbol: %s\nReason: %s", pos.Symbol, reason))
	return nil
}

// closeVerified is the reversal path: like close, but the exit order must
// reach complete before the record is removed.
func (s *TradeService) closeVerified(ctx context.Context, pos domain.Position) error {
	s.cancelBrackets(ctx, pos)

	if remaining := pos.RemainingQty(); remaining > 0 {
		spec := domain.MarketOrder(pos.InstrumentKey, pos.Action.Opposite(), remaining)
		exitID, err := s.broker.PlaceOrder(ctx, spec, labelReversal)
		if err != nil {
			return fmt.Errorf("reversal exit: %w: %w", domain.ErrExitFailed, err)
		}
		if status := s.waitForFill(ctx, exitID); status != domain.OrderStatusComplete {
			return fmt.Errorf("reversal exit %s status %s: %w", exitID, status, domain.ErrExitFailed)
		}
	}
	if err := s.positions.Delete(ctx, pos.Symbol); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	s.record(ctx, pos, domain.CloseReasonReversal)
	s.publish(domain.PositionEvent{Type: "closed", Symbol: pos.Symbol, Reason: string(domain.CloseReasonReversal), At: s.now()})
	return nil
}

// EmergencyExit market-exits qty of symbol against entryAction without
// touching the position store. Used when a position was never (or can no
// longer be) persisted.
func (s *TradeService) EmergencyExit(ctx context.Context, symbol, instrumentKey string, qty int, entryAction domain.TransactionType) error {
	spec := domain.MarketOrder(instrumentKey, entryAction.Opposite(), qty)
	if _, err := s.broker.PlaceOrder(ctx, spec, labelEmergency); err != nil {
		title, body := alert.EmergencyExit(symbol, qty, "EMERGENCY EXIT FAILED — manual intervention required")
		_ = s.notifier.NotifyCritical(ctx, title, body)
		return fmt.Errorf("service: emergency exit %s: %w: %w", symbol, domain.ErrExitFailed, err)
	}
	return nil
}

func (s *TradeService) emergencyExit(ctx context.Context, pos domain.Position, reason string) {
	if err := s.EmergencyExit(ctx, pos.Symbol, pos.InstrumentKey, pos.FilledQty, pos.Action); err != nil {
		s.logger.ErrorContext(ctx, "emergency exit failed",
			slog.String("symbol", pos.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}
	title, body := alert.EmergencyExit(pos.Symbol, pos.FilledQty, reason)
	_ = s.notifier.NotifyCritical(ctx, title, body)
	s.publish(domain.PositionEvent{Type: "emergency_exit", Symbol: pos.Symbol, Reason: reason, At: s.now()})
}

// cancelBrackets best-effort cancels every bracket leg of pos. Cancels of
// already-filled legs fail at the broker and are ignored.
func (s *TradeService) cancelBrackets(ctx context.Context, pos domain.Position) {
	for _, id := range pos.BracketOrderIDs() {
		if err := s.broker.CancelOrder(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "bracket cancel failed",
				slog.String("symbol", pos.Symbol),
				slog.String("order_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// waitForFill polls orderID until it reaches a terminal status or the fill
// timeout elapses. Transient status errors do not end the poll. Returns
// pending on timeout.
func (s *TradeService) waitForFill(ctx context.Context, orderID string) domain.OrderStatus {
	deadline := s.now().Add(s.cfg.FillTimeout)
	for {
		status, err := s.broker.GetOrderStatus(ctx, orderID)
		if err != nil {
			s.logger.WarnContext(ctx, "order status poll failed",
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		} else if status.Terminal() {
			return status
		}

		if !s.now().Add(s.cfg.FillPollInterval).Before(deadline) {
			return domain.OrderStatusPending
		}
		select {
		case <-ctx.Done():
			return domain.OrderStatusPending
		case <-time.After(s.cfg.FillPollInterval):
		}
	}
}

func (s *TradeService) record(ctx context.Context, pos domain.Position, reason domain.CloseReason) {
	if s.journal == nil {
		return
	}
	closed := domain.ClosedPosition{Position: pos, Reason: reason, ClosedAt: s.now()}
	if err := s.journal.Record(ctx, closed); err != nil {
		s.logger.WarnContext(ctx, "journal write failed",
			slog.String("symbol", pos.Symbol),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TradeService) publish(event domain.PositionEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
