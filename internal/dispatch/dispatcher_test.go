package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"hookcast/internal/payload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testDispatcher(workers int) *Dispatcher {
	return New(Config{
		QueueSize:     8,
		Workers:       workers,
		RatePerMinute: 60000, // effectively unthrottled for tests
		Burst:         100,
		MaxRetries:    0,
		Logger:        testLogger(),
	})
}

func jsonBody() *payload.Body {
	return &payload.Body{ContentType: "application/json", Data: []byte(`{"content":"hi","tts":false}`)}
}

func TestDispatcher_Delivers(t *testing.T) {
	var gotContentType atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType.Store(r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := testDispatcher(1)
	d.Start(ctx)

	req := NewRequest(ctx, http.MethodPost, srv.URL, jsonBody())
	f := d.Submit(req)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	res, err := f.Wait(waitCtx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != http.StatusNoContent {
		t.Errorf("expected 204, got %d", res.Status)
	}
	if ct := gotContentType.Load(); ct != "application/json" {
		t.Errorf("expected json content type, got %v", ct)
	}

	cancel()
	d.Stop()
}

func TestDispatcher_FailsOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := testDispatcher(1)
	d.Start(ctx)

	f := d.Submit(NewRequest(ctx, http.MethodPost, srv.URL, jsonBody()))

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	_, err := f.Wait(waitCtx)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", statusErr.Status)
	}
}

func TestDispatcher_RetriesTransientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try later", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := New(Config{
		QueueSize:     8,
		Workers:       1,
		RatePerMinute: 60000,
		Burst:         100,
		MaxRetries:    1,
		Logger:        testLogger(),
	})
	d.Start(ctx)

	f := d.Submit(NewRequest(ctx, http.MethodPost, srv.URL, jsonBody()))

	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	res, err := f.Wait(waitCtx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != http.StatusNoContent {
		t.Errorf("expected 204 after retry, got %d", res.Status)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestDispatcher_QueueFullFailsFast(t *testing.T) {
	// Workers never started, so the queue fills up.
	d := New(Config{
		QueueSize:     1,
		Workers:       1,
		RatePerMinute: 60000,
		Burst:         100,
		Logger:        testLogger(),
	})

	f1 := d.Submit(NewRequest(context.Background(), http.MethodPost, "http://example.com", jsonBody()))
	f2 := d.Submit(NewRequest(context.Background(), http.MethodPost, "http://example.com", jsonBody()))

	if f1.IsDone() {
		t.Error("first request should stay queued")
	}
	if f2.State() != StateFailed {
		t.Errorf("second request should fail fast, got %s", f2.State())
	}
}

func TestDispatcher_CancelledWhileQueuedIsSkipped(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := testDispatcher(1)
	req := NewRequest(context.Background(), http.MethodPost, srv.URL, jsonBody())
	f := d.Submit(req)

	if !f.Cancel() {
		t.Fatal("cancel before execution must succeed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	d.Stop()

	if calls.Load() != 0 {
		t.Error("cancelled request must not hit the endpoint")
	}
	if f.State() != StateCancelled {
		t.Errorf("expected cancelled, got %s", f.State())
	}
}

func TestDispatcher_ShutdownFailsQueued(t *testing.T) {
	d := testDispatcher(1)
	f := d.Submit(NewRequest(context.Background(), http.MethodPost, "http://127.0.0.1:1", jsonBody()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Stop()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	_, err := f.Wait(waitCtx)
	if err == nil {
		t.Fatal("queued request must fail on shutdown")
	}
}
