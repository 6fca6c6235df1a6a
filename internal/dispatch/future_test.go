package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"hookcast/internal/payload"
)

func pendingFuture() *Future {
	req := NewRequest(context.Background(), "POST", "http://example.com/hook",
		&payload.Body{ContentType: "application/json", Data: []byte(`{"tts":false}`)})
	return req.Future()
}

func TestFuture_CompletedConstructor(t *testing.T) {
	f := Completed(&Result{Status: 204})
	if f.State() != StateCompleted || !f.IsDone() {
		t.Fatalf("expected completed, got %s", f.State())
	}
	res, err := f.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != 204 {
		t.Errorf("expected 204, got %d", res.Status)
	}
}

func TestFuture_FailedConstructor(t *testing.T) {
	boom := errors.New("boom")
	f := Failed(boom)
	if f.State() != StateFailed {
		t.Fatalf("expected failed, got %s", f.State())
	}
	_, err := f.Wait(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestFuture_CancelOnce(t *testing.T) {
	f := pendingFuture()
	if !f.Cancel() {
		t.Fatal("first cancel must transition to cancelled")
	}
	if f.Cancel() {
		t.Fatal("second cancel must return false")
	}
	if f.State() != StateCancelled {
		t.Errorf("expected cancelled, got %s", f.State())
	}
	_, err := f.Wait(context.Background())
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestFuture_CancelAfterComplete(t *testing.T) {
	f := Completed(&Result{Status: 200})
	if f.Cancel() {
		t.Fatal("cancel on a completed future must return false")
	}
	if f.State() != StateCompleted {
		t.Errorf("state must stay completed, got %s", f.State())
	}
}

func TestFuture_DoubleResolveIgnored(t *testing.T) {
	f := pendingFuture()
	if !f.complete(&Result{Status: 200}) {
		t.Fatal("first complete must win")
	}
	if f.fail(errors.New("late")) {
		t.Fatal("late failure must be ignored")
	}
	res, err := f.Wait(context.Background())
	if err != nil || res.Status != 200 {
		t.Errorf("resolution overwritten: res=%v err=%v", res, err)
	}
}

func TestFuture_WaitContextExpires(t *testing.T) {
	f := pendingFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if f.State() != StatePending {
		t.Error("an expired wait must not resolve the future")
	}
}

func TestFuture_OnCompletePending(t *testing.T) {
	f := pendingFuture()
	got := make(chan error, 1)
	f.OnComplete(func(_ *Result, err error) {
		got <- err
	})
	f.complete(&Result{Status: 204})

	select {
	case err := <-got:
		if err != nil {
			t.Errorf("expected nil err, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestFuture_OnCompleteAlreadyResolved(t *testing.T) {
	f := Failed(errors.New("boom"))
	var ran bool
	f.OnComplete(func(_ *Result, err error) {
		ran = err != nil
	})
	if !ran {
		t.Fatal("callback must run inline on a resolved future")
	}
}

func TestFuture_IDMatchesRequest(t *testing.T) {
	req := NewRequest(context.Background(), "POST", "http://example.com/hook", &payload.Body{})
	if req.Future().ID() != req.ID {
		t.Errorf("future id %s != request id %s", req.Future().ID(), req.ID)
	}
	if Completed(&Result{}).ID() == "" {
		t.Error("pre-resolved futures still need an id")
	}
}
