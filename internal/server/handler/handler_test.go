package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tradewire/ictbot/internal/domain"
	"github.com/tradewire/ictbot/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubTrades struct {
	openRes  service.OpenResult
	openErr  error
	gotSig   domain.Signal
	closeErr error
	closed   []string
	allRes   service.CloseAllResult
	allErr   error
}

func (s *stubTrades) OpenPosition(_ context.Context, sig domain.Signal) (service.OpenResult, error) {
	s.gotSig = sig
	return s.openRes, s.openErr
}

func (s *stubTrades) ManualClose(_ context.Context, symbol string) error {
	s.closed = append(s.closed, symbol)
	return s.closeErr
}

func (s *stubTrades) CloseAll(context.Context) (service.CloseAllResult, error) {
	return s.allRes, s.allErr
}

func TestWebhookReceive(t *testing.T) {
	trades := &stubTrades{openRes: service.OpenResult{Symbol: "RELIANCE", FilledQty: 10}}
	h := NewWebhookHandler(trades, testLogger())

	body := `{"action":"buy","symbol":"NSE:RELIANCE","price":"2500.5","qty":"{{qty}}","sl":2480}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	// Malformed template quantity coerces to 0 and is clamped later.
	if trades.gotSig.Qty.Float() != 0 || trades.gotSig.Price.Float() != 2500.5 {
		t.Errorf("decoded signal = %+v", trades.gotSig)
	}

	var resp struct {
		Status string             `json:"status"`
		Result service.OpenResult `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if resp.Status != "success" || resp.Result.Symbol != "RELIANCE" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestWebhookErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidAction, http.StatusBadRequest},
		{domain.ErrMarketClosed, http.StatusBadRequest},
		{domain.ErrSymbolNotFound, http.StatusBadRequest},
		{domain.ErrLockHeld, http.StatusConflict},
		{domain.ErrNoCredential, http.StatusUnauthorized},
		{domain.ErrProtectionFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewWebhookHandler(&stubTrades{openErr: tt.err}, testLogger())
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"action":"buy","symbol":"X"}`))
			rec := httptest.NewRecorder()
			h.Receive(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestWebhookBadJSON(t *testing.T) {
	h := NewWebhookHandler(&stubTrades{}, testLogger())
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.Receive(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCloseOne(t *testing.T) {
	trades := &stubTrades{}
	h := NewCloseHandler(trades, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/close/RELIANCE", nil)
	req.SetPathValue("symbol", "RELIANCE")
	rec := httptest.NewRecorder()
	h.CloseOne(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(trades.closed) != 1 || trades.closed[0] != "RELIANCE" {
		t.Errorf("closed = %v", trades.closed)
	}
}

func TestCloseOneNotFound(t *testing.T) {
	h := NewCloseHandler(&stubTrades{closeErr: domain.ErrNotFound}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/close/GHOST", nil)
	req.SetPathValue("symbol", "GHOST")
	rec := httptest.NewRecorder()
	h.CloseOne(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

type stubReconciler struct {
	report service.ReconcileReport
	err    error
}

func (s *stubReconciler) ReconcilePositions(context.Context) (service.ReconcileReport, error) {
	return s.report, s.err
}

func TestReconcileCheck(t *testing.T) {
	h := NewReconcileHandler(&stubReconciler{
		report: service.ReconcileReport{Checked: 2, TargetsHit: []string{"RELIANCE"}},
	}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/check_positions", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report service.ReconcileReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("response: %v", err)
	}
	if report.Checked != 2 || len(report.TargetsHit) != 1 {
		t.Errorf("report = %+v", report)
	}
}

type stubAuth struct {
	url     string
	gotCode string
	err     error
}

func (s *stubAuth) LoginURL() string { return s.url }

func (s *stubAuth) HandleCallback(_ context.Context, code string) error {
	s.gotCode = code
	return s.err
}

func TestAuthLoginRedirects(t *testing.T) {
	h := NewAuthHandler(&stubAuth{url: "https://api.upstox.com/v2/login/authorization/dialog?client_id=x"}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "authorization/dialog") {
		t.Errorf("location = %q", loc)
	}
}

func TestAuthCallback(t *testing.T) {
	auth := &stubAuth{}
	h := NewAuthHandler(auth, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/callback?code=abc123", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if auth.gotCode != "abc123" {
		t.Errorf("code = %q", auth.gotCode)
	}
}

func TestAuthCallbackMissingCode(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuthCallbackExchangeFailure(t *testing.T) {
	h := NewAuthHandler(&stubAuth{err: errors.New("bad code")}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/callback?code=bad", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}

type stubStatus struct {
	home      service.HomeStatus
	stats     service.Stats
	positions []domain.Position
	err       error
}

func (s *stubStatus) Home(context.Context) (service.HomeStatus, error) { return s.home, s.err }
func (s *stubStatus) Stats(context.Context) (service.Stats, error)    { return s.stats, s.err }
func (s *stubStatus) Positions(context.Context) ([]domain.Position, error) {
	return s.positions, s.err
}

func TestStatusPositionsEmpty(t *testing.T) {
	h := NewStatusHandler(&stubStatus{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/positions", nil)
	rec := httptest.NewRecorder()
	h.Positions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// A nil slice must serialize as an empty array, not null.
	if !strings.Contains(rec.Body.String(), `"positions":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStatusHome(t *testing.T) {
	h := NewStatusHandler(&stubStatus{
		home: service.HomeStatus{Status: "running", TokenValid: true, OpenPositions: 1, Symbols: []string{"RELIANCE"}},
	}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Home(rec, req)

	var home service.HomeStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &home); err != nil {
		t.Fatalf("response: %v", err)
	}
	if home.Status != "running" || !home.TokenValid {
		t.Errorf("home = %+v", home)
	}
}
