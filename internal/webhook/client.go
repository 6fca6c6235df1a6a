// Package webhook is the client surface bound to one webhook endpoint.
// It encodes messages, records deliveries, and hands requests to the
// dispatcher.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"hookcast/internal/dispatch"
	"hookcast/internal/history"
	"hookcast/internal/message"
	"hookcast/internal/payload"
)

// Submitter executes prepared requests. Satisfied by
// *dispatch.Dispatcher; tests substitute fakes.
type Submitter interface {
	Submit(*dispatch.Request) *dispatch.Future
}

// ClientConfig configures a Client.
type ClientConfig struct {
	URL        string
	Username   string // default sender name applied when a message sets none
	AvatarURL  string // default sender avatar applied when a message sets none
	Dispatcher Submitter
	History    *history.Store // optional delivery log
	Logger     *slog.Logger
}

// Client sends messages to a single webhook endpoint.
type Client struct {
	url        string
	username   string
	avatarURL  string
	dispatcher Submitter
	history    *history.Store
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook URL %q", cfg.URL)
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:        cfg.URL,
		username:   cfg.Username,
		avatarURL:  cfg.AvatarURL,
		dispatcher: cfg.Dispatcher,
		history:    cfg.History,
		logger:     logger,
	}, nil
}

// URL returns the endpoint this client posts to.
func (c *Client) URL() string { return c.url }

// Send encodes msg and submits it. The call never blocks on network
// I/O: validation and encoding failures come back as an already-failed
// future, transport outcomes arrive through the future asynchronously.
func (c *Client) Send(ctx context.Context, msg *message.Message) *dispatch.Future {
	if msg == nil {
		return dispatch.Failed(fmt.Errorf("%w: message is nil", message.ErrInvalidArgument))
	}
	msg = msg.WithDefaults(c.username, c.avatarURL)

	body, err := payload.Encode(msg)
	if err != nil {
		c.logger.Error("encode message", "err", err)
		return dispatch.Failed(err)
	}

	req := dispatch.NewRequest(ctx, http.MethodPost, c.url, body)

	if c.history != nil {
		c.record(req, msg, body)
	}

	c.logger.Info("message submitted",
		"id", req.ID,
		"bytes", len(body.Data),
		"files", len(msg.Attachments),
	)
	return c.dispatcher.Submit(req)
}

// SendContent sends a plain text message.
func (c *Client) SendContent(ctx context.Context, content string) *dispatch.Future {
	msg, err := message.NewBuilder().SetContent(content).Build()
	if err != nil {
		return dispatch.Failed(err)
	}
	return c.Send(ctx, msg)
}

func (c *Client) record(req *dispatch.Request, msg *message.Message, body *payload.Body) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.history.Record(ctx, history.Delivery{
		ID:       req.ID,
		Endpoint: c.url,
		Bytes:    len(body.Data),
		Files:    len(msg.Attachments),
	})
	if err != nil {
		c.logger.Warn("record delivery", "id", req.ID, "err", err)
	}

	req.Future().OnComplete(func(_ *dispatch.Result, resErr error) {
		status := history.StatusDelivered
		errMsg := ""
		switch {
		case errors.Is(resErr, dispatch.ErrCancelled):
			status = history.StatusCancelled
			errMsg = resErr.Error()
		case resErr != nil:
			status = history.StatusFailed
			errMsg = resErr.Error()
		}
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer rcancel()
		if err := c.history.Resolve(rctx, req.ID, status, errMsg); err != nil {
			c.logger.Warn("resolve delivery", "id", req.ID, "err", err)
		}
	})
}
