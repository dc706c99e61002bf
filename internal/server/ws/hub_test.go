package ws

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tradewire/ictbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubBroadcastDeliversToClient(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &client{hub: h, send: make(chan []byte, 1)}
	if !h.add(c) {
		t.Fatal("add refused while running")
	}

	h.Publish(domain.PositionEvent{Type: "opened", Symbol: "RELIANCE", At: time.Now()})

	select {
	case data := <-c.send:
		if !strings.Contains(string(data), `"opened"`) || !strings.Contains(string(data), "RELIANCE") {
			t.Errorf("frame = %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
}

func TestHubShutdownUnblocksHandoff(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- h.Run(ctx) }()

	c := &client{hub: h, send: make(chan []byte, 1)}
	if !h.add(c) {
		t.Fatal("add refused while running")
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on cancellation")
	}

	// Connection goroutines racing the shutdown must not hang on the
	// run loop, which will never read the handoff channels again.
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		h.remove(c)
		if h.add(&client{hub: h, send: make(chan []byte, 1)}) {
			t.Error("add accepted after shutdown")
		}
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("handoff blocked after shutdown")
	}
}
