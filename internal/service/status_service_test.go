package service

import (
	"context"
	"testing"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
)

type fakeTokens struct {
	cred domain.Credential
	err  error
}

func (t *fakeTokens) Save(_ context.Context, cred domain.Credential) error {
	t.cred = cred
	return nil
}

func (t *fakeTokens) Get(context.Context) (domain.Credential, error) {
	if t.err != nil {
		return domain.Credential{}, t.err
	}
	return t.cred, nil
}

func TestHomeStatus(t *testing.T) {
	store := newMemStore(
		domain.Position{Symbol: "RELIANCE", Direction: domain.DirectionLong, FilledQty: 10},
	)
	tokens := &fakeTokens{cred: domain.Credential{Token: "tok", IssuedAt: time.Now()}}
	svc := NewStatusService(store, tokens, fakeCalendar{open: true})

	home, err := svc.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if !home.TokenValid || !home.MarketOpen || home.OpenPositions != 1 {
		t.Errorf("home = %+v", home)
	}
	if len(home.Symbols) != 1 || home.Symbols[0] != "RELIANCE" {
		t.Errorf("symbols = %v", home.Symbols)
	}
}

func TestHomeStatusMissingToken(t *testing.T) {
	tokens := &fakeTokens{err: domain.ErrNoCredential}
	svc := NewStatusService(newMemStore(), tokens, fakeCalendar{open: false})

	home, err := svc.Home(context.Background())
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home.TokenValid || home.MarketOpen || home.OpenPositions != 0 {
		t.Errorf("home = %+v", home)
	}
}

func TestStatsAggregation(t *testing.T) {
	store := newMemStore(
		domain.Position{Symbol: "RELIANCE", Direction: domain.DirectionLong, FilledQty: 10},
		domain.Position{
			Symbol: "TCS", Direction: domain.DirectionShort, FilledQty: 8, PartialFilled: true,
			PartialTP: &domain.BracketOrder{OrderID: "pt", Quantity: 4},
		},
	)
	svc := NewStatusService(store, &fakeTokens{}, fakeCalendar{open: true})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.OpenPositions != 2 {
		t.Errorf("open = %d", stats.OpenPositions)
	}
	// 10 long plus 4 remaining short after the partial exit.
	if stats.TotalQuantity != 14 {
		t.Errorf("total qty = %d", stats.TotalQuantity)
	}
	if stats.ByDirection["LONG"] != 1 || stats.ByDirection["SHORT"] != 1 {
		t.Errorf("by direction = %v", stats.ByDirection)
	}
}
