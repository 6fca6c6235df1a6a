package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"a", "b", "c"} {
		err := s.Record(ctx, Delivery{
			ID:        id,
			Endpoint:  "https://example.com/hook",
			Bytes:     10 + i,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	// Newest first.
	if got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Status != StatusPending {
		t.Errorf("expected pending default, got %s", got[0].Status)
	}
	if got[0].DoneAt != nil {
		t.Error("pending delivery must have no done_at")
	}
}

func TestStore_RecordDuplicateIgnored(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, Delivery{ID: "a", Endpoint: "e1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, Delivery{ID: "a", Endpoint: "e2"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].Endpoint != "e1" {
		t.Errorf("first record must win, got endpoint %s", got[0].Endpoint)
	}
}

func TestStore_ResolveIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, Delivery{ID: "a", Endpoint: "e"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Resolve(ctx, "a", StatusDelivered, ""); err != nil {
		t.Fatal(err)
	}
	// A late callback must not overwrite the recorded outcome.
	if err := s.Resolve(ctx, "a", StatusFailed, "late error"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != StatusDelivered {
		t.Errorf("expected delivered, got %s", got[0].Status)
	}
	if got[0].Error != "" {
		t.Errorf("expected empty error, got %q", got[0].Error)
	}
	if got[0].DoneAt == nil {
		t.Error("resolved delivery must carry done_at")
	}
}

func TestStore_ResolveFailureKeepsError(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, Delivery{ID: "a", Endpoint: "e"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Resolve(ctx, "a", StatusFailed, "status 404"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != StatusFailed || got[0].Error != "status 404" {
		t.Errorf("unexpected resolution: %s %q", got[0].Status, got[0].Error)
	}
}
