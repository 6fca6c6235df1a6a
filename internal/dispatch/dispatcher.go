// Package dispatch owns the outbound request queue: rate limiting,
// HTTP execution with bounded retry, and the completion futures handed
// back to callers.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"hookcast/internal/metrics"
)

const maxResponseBytes = 1 << 22 // 4MB

// StatusError is a terminal non-2xx response from the endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint returned HTTP %d: %s", e.Status, e.Body)
}

// Config configures a Dispatcher.
type Config struct {
	QueueSize     int
	Workers       int
	RatePerMinute float64
	Burst         int
	Timeout       time.Duration
	MaxRetries    int // retries on 5xx/429 and network errors; 0 disables
	Client        *http.Client
	Logger        *slog.Logger
}

// Dispatcher executes queued requests on its own worker pool and
// resolves each request's future from there. Submission never blocks
// the caller.
type Dispatcher struct {
	queue      chan *Request
	client     *http.Client
	limiter    *RateLimiter
	logger     *slog.Logger
	maxRetries int
	workers    int
	wg         sync.WaitGroup
}

func New(cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = newHTTPClient(cfg.Timeout)
	}
	return &Dispatcher{
		queue:      make(chan *Request, cfg.QueueSize),
		client:     client,
		limiter:    NewRateLimiter(cfg.Burst, cfg.RatePerMinute),
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		workers:    cfg.Workers,
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// done; requests still queued at shutdown fail with the ctx error.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop waits for the workers to exit. Call after the Start context is
// cancelled.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
}

// Submit enqueues req and returns its future. The caller is never
// blocked: when the queue is full, the future fails immediately instead.
func (d *Dispatcher) Submit(req *Request) *Future {
	f := req.Future()
	metrics.DispatchesTotal.Inc()
	select {
	case d.queue <- req:
		metrics.QueueDepth.Inc()
	default:
		metrics.FailuresTotal.Inc()
		f.fail(fmt.Errorf("dispatch queue full (%d pending)", cap(d.queue)))
	}
	return f
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(ctx.Err())
			return
		case req := <-d.queue:
			metrics.QueueDepth.Dec()
			d.execute(req)
		}
	}
}

// drain fails whatever is still queued so no future is left pending
// after shutdown.
func (d *Dispatcher) drain(cause error) {
	for {
		select {
		case req := <-d.queue:
			metrics.QueueDepth.Dec()
			metrics.FailuresTotal.Inc()
			req.future.fail(fmt.Errorf("dispatcher shut down: %w", cause))
		default:
			return
		}
	}
}

func (d *Dispatcher) execute(req *Request) {
	f := req.future
	if f.IsDone() {
		// Cancelled while queued; nothing to do.
		return
	}

	if err := d.limiter.Wait(req.ctx); err != nil {
		// Cancel already resolved the future when the wait was
		// interrupted by Cancel; fail is a no-op in that case.
		if f.fail(fmt.Errorf("rate limit wait: %w", err)) {
			metrics.FailuresTotal.Inc()
		} else {
			metrics.CancellationsTotal.Inc()
		}
		return
	}

	start := time.Now()
	res, err := d.do(req)
	metrics.DispatchLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if f.fail(err) {
			metrics.FailuresTotal.Inc()
			d.logger.Error("dispatch failed", "id", req.ID, "url", req.URL, "err", err)
		} else {
			metrics.CancellationsTotal.Inc()
		}
		return
	}
	if res.Status >= 300 {
		statusErr := &StatusError{Status: res.Status, Body: string(res.Body)}
		if f.fail(statusErr) {
			metrics.FailuresTotal.Inc()
			d.logger.Error("dispatch rejected", "id", req.ID, "status", res.Status)
		}
		return
	}
	if f.complete(res) {
		metrics.DeliveredTotal.Inc()
		d.logger.Info("dispatch delivered", "id", req.ID, "status", res.Status, "took", time.Since(start))
	}
}

// do runs the HTTP exchange with exponential backoff retry for
// transient failures (network errors, 5xx, 429).
func (d *Dispatcher) do(req *Request) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			base := time.Duration(attempt*attempt) * time.Second
			jitter := time.Duration(rand.Int63n(int64(base/2 + 1)))
			backoff := base + jitter
			d.logger.Warn("retrying dispatch", "id", req.ID, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-req.ctx.Done():
				return nil, req.ctx.Err()
			case <-time.After(backoff):
			}
		}

		httpReq, err := http.NewRequestWithContext(req.ctx, req.Method, req.URL, bytes.NewReader(req.Body.Data))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		for k, vs := range req.Header {
			httpReq.Header[k] = vs
		}
		httpReq.Header.Set("Content-Type", req.Body.ContentType)

		resp, err := d.client.Do(httpReq)
		if err != nil {
			lastErr = err
			if req.ctx.Err() != nil {
				return nil, req.ctx.Err()
			}
			if attempt < d.maxRetries {
				d.logger.Warn("dispatch attempt failed, will retry", "id", req.ID, "err", err)
				continue
			}
			return nil, fmt.Errorf("request failed after %d retries: %w", d.maxRetries, err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &StatusError{Status: resp.StatusCode, Body: string(body)}
			if attempt < d.maxRetries {
				d.logger.Warn("endpoint error, will retry", "id", req.ID, "status", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("endpoint error after %d retries: %w", d.maxRetries, lastErr)
		}

		return &Result{Status: resp.StatusCode, Body: body}, nil
	}

	return nil, lastErr
}
