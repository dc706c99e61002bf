package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory PositionStore.
type memStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	puts      int
	deletes   int
	listErr   error
}

func newMemStore(seed ...domain.Position) *memStore {
	s := &memStore{positions: map[string]domain.Position{}}
	for _, p := range seed {
		s.positions[p.Symbol] = p
	}
	return s
}

func (s *memStore) Put(_ context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.Symbol] = pos
	s.puts++
	return nil
}

func (s *memStore) Get(_ context.Context, symbol string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[symbol]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *memStore) Delete(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, symbol)
	s.deletes++
	return nil
}

func (s *memStore) List(_ context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out, nil
}

// fakeBroker scripts order placement and status polling.
type fakeBroker struct {
	mu        sync.Mutex
	nextID    int
	placed    []placedOrder
	cancelled []string

	placeErr  map[string]error                // by leg label
	statuses  map[string]domain.OrderStatus   // by order ID, default complete
	statusSeq map[string][]domain.OrderStatus // consumed before statuses
	statusErr map[string]error
	filled    map[string]int // by order ID, default spec quantity
	cancelErr map[string]error
}

type placedOrder struct {
	ID    string
	Label string
	Spec  domain.OrderSpec
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		placeErr:  map[string]error{},
		statuses:  map[string]domain.OrderStatus{},
		statusSeq: map[string][]domain.OrderStatus{},
		statusErr: map[string]error{},
		filled:    map[string]int{},
		cancelErr: map[string]error{},
	}
}

func (b *fakeBroker) PlaceOrder(_ context.Context, spec domain.OrderSpec, label string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.placeErr[label]; err != nil {
		return "", err
	}
	b.nextID++
	id := fmt.Sprintf("ord-%d", b.nextID)
	b.placed = append(b.placed, placedOrder{ID: id, Label: label, Spec: spec})
	return id, nil
}

func (b *fakeBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.cancelErr[orderID]; err != nil {
		return err
	}
	b.cancelled = append(b.cancelled, orderID)
	return nil
}

func (b *fakeBroker) GetOrderStatus(_ context.Context, orderID string) (domain.OrderStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.statusErr[orderID]; err != nil {
		return domain.OrderStatusUnknown, err
	}
	if seq := b.statusSeq[orderID]; len(seq) > 0 {
		st := seq[0]
		b.statusSeq[orderID] = seq[1:]
		return st, nil
	}
	if st, ok := b.statuses[orderID]; ok {
		return st, nil
	}
	return domain.OrderStatusComplete, nil
}

func (b *fakeBroker) GetFilledQuantity(_ context.Context, orderID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if qty, ok := b.filled[orderID]; ok {
		return qty, nil
	}
	for _, p := range b.placed {
		if p.ID == orderID {
			return p.Spec.Quantity, nil
		}
	}
	return 0, fmt.Errorf("unknown order %s", orderID)
}

func (b *fakeBroker) byLabel(label string) []placedOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []placedOrder
	for _, p := range b.placed {
		if p.Label == label {
			out = append(out, p)
		}
	}
	return out
}

func (b *fakeBroker) placedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.placed)
}

type fakeResolver struct {
	keys map[string]string
}

func (r *fakeResolver) Resolve(_ context.Context, symbol string) (string, error) {
	key, ok := r.keys[symbol]
	if !ok {
		return "", fmt.Errorf("resolver: %s: %w", symbol, domain.ErrSymbolNotFound)
	}
	return key, nil
}

type fakeLocks struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
	unlocked int
}

func newFakeLocks() *fakeLocks { return &fakeLocks{held: map[string]bool{}} }

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, fmt.Errorf("lock %s: %w", key, domain.ErrLockHeld)
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		l.unlocked++
		l.mu.Unlock()
	}, nil
}

type fakeCalendar struct{ open bool }

func (c fakeCalendar) IsOpen(time.Time) bool { return c.open }

type fakeJournal struct {
	mu      sync.Mutex
	records []domain.ClosedPosition
	err     error
}

func (j *fakeJournal) Record(_ context.Context, closed domain.ClosedPosition) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, closed)
	return nil
}

func (j *fakeJournal) reasons() []domain.CloseReason {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.CloseReason
	for _, r := range j.records {
		out = append(out, r.Reason)
	}
	return out
}

type fakeSink struct {
	mu     sync.Mutex
	events []domain.PositionEvent
}

func (s *fakeSink) Publish(event domain.PositionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// captureSender records notifications delivered through the notifier.
type captureSender struct {
	mu     sync.Mutex
	titles []string
}

func (s *captureSender) Send(_ context.Context, title, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, title)
	return nil
}

func (s *captureSender) Name() string { return "capture" }

func (s *captureSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.titles...)
}

func testNotifier(sender notify.Sender) *notify.Notifier {
	return notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())
}
