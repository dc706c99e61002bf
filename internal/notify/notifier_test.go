package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestNotifyEventFilter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{"order"}, testLogger())

	if err := n.Notify(context.Background(), "order", "allowed", ""); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := n.Notify(context.Background(), "debug", "filtered", ""); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(s.titles) != 1 || s.titles[0] != "allowed" {
		t.Errorf("delivered titles = %v, want [allowed]", s.titles)
	}
}

func TestNotifyCriticalBypassesFilter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{"order"}, testLogger())

	if err := n.NotifyCritical(context.Background(), "emergency", ""); err != nil {
		t.Fatalf("NotifyCritical: %v", err)
	}
	if len(s.titles) != 1 {
		t.Errorf("delivered %d messages, want 1", len(s.titles))
	}
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), "any", "t", "m")
	if err == nil {
		t.Error("expected sender failure to be reported")
	}
	if len(good.titles) != 1 {
		t.Error("healthy sender should still receive the message")
	}
}

func TestTelegramSenderPayload(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "chat-1")
	s.baseURL = srv.URL

	if err := s.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if payload["chat_id"] != "chat-1" {
		t.Errorf("chat_id = %v", payload["chat_id"])
	}
	if payload["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %v, want HTML", payload["parse_mode"])
	}
	if payload["text"] != "<b>Title</b>\nbody" {
		t.Errorf("text = %v", payload["text"])
	}
}

func TestDiscordSenderStripsHTML(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	if err := s.Send(context.Background(), "Title", "<b>bold</b> text"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if payload["content"] != "**Title**\nbold text" {
		t.Errorf("content = %q", payload["content"])
	}
}
