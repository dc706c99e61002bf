package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
)

// HomeStatus is the GET / summary.
type HomeStatus struct {
	Status        string   `json:"status"`
	TokenValid    bool     `json:"token_valid"`
	MarketOpen    bool     `json:"market_open"`
	OpenPositions int      `json:"open_positions"`
	Symbols       []string `json:"symbols"`
	Time          string   `json:"time"`
}

// Stats is the GET /stats payload.
type Stats struct {
	OpenPositions int               `json:"open_positions"`
	TotalQuantity int               `json:"total_quantity"`
	ByDirection   map[string]int    `json:"by_direction"`
	Positions     []domain.Position `json:"positions"`
}

// StatusService serves the read-only views of the book and service state.
type StatusService struct {
	positions domain.PositionStore
	tokens    domain.TokenStore
	calendar  domain.MarketCalendar

	now func() time.Time
}

// NewStatusService wires a StatusService.
func NewStatusService(positions domain.PositionStore, tokens domain.TokenStore, calendar domain.MarketCalendar) *StatusService {
	return &StatusService{positions: positions, tokens: tokens, calendar: calendar, now: time.Now}
}

// Home returns the landing summary.
func (s *StatusService) Home(ctx context.Context) (HomeStatus, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return HomeStatus{}, fmt.Errorf("service: home: %w", err)
	}
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}

	tokenValid := true
	if _, err := s.tokens.Get(ctx); err != nil {
		if !errors.Is(err, domain.ErrNoCredential) {
			return HomeStatus{}, fmt.Errorf("service: home token: %w", err)
		}
		tokenValid = false
	}

	return HomeStatus{
		Status:        "running",
		TokenValid:    tokenValid,
		MarketOpen:    s.calendar.IsOpen(s.now()),
		OpenPositions: len(positions),
		Symbols:       symbols,
		Time:          s.now().UTC().Format(time.RFC3339),
	}, nil
}

// Stats returns aggregate book statistics.
func (s *StatusService) Stats(ctx context.Context) (Stats, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("service: stats: %w", err)
	}
	stats := Stats{
		OpenPositions: len(positions),
		ByDirection:   map[string]int{},
		Positions:     positions,
	}
	for _, p := range positions {
		stats.TotalQuantity += p.RemainingQty()
		stats.ByDirection[string(p.Direction)]++
	}
	return stats, nil
}

// Positions returns every open position.
func (s *StatusService) Positions(ctx context.Context) ([]domain.Position, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: positions: %w", err)
	}
	return positions, nil
}
