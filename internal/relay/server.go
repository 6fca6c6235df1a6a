// Package relay exposes a small HTTP ingress that forwards posted
// messages to the configured webhook endpoint.
package relay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hookcast/internal/dispatch"
	"hookcast/internal/message"
	"hookcast/internal/metrics"
)

// Sender forwards a built message; satisfied by *webhook.Client.
type Sender interface {
	Send(ctx context.Context, msg *message.Message) *dispatch.Future
}

// Config configures the relay server.
type Config struct {
	Host    string
	Port    int
	Path    string // ingress URL path (default: /send)
	Secret  string // HMAC secret for verifying request signatures
	Sender  Sender
	Metrics http.Handler // optional, served at /metrics
	Logger  *slog.Logger
}

// Server accepts HTTP POST requests and relays them as webhook messages.
type Server struct {
	host    string
	port    int
	path    string
	secret  string
	sender  Sender
	metrics http.Handler
	logger  *slog.Logger
	server  *http.Server
}

// Payload is the expected JSON body for relay requests.
type Payload struct {
	Content   string `json:"content"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	TTS       bool   `json:"tts,omitempty"`
}

func New(cfg Config) *Server {
	if cfg.Path == "" {
		cfg.Path = "/send"
	}
	if cfg.Port == 0 {
		cfg.Port = 8484
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		host:    cfg.Host,
		port:    cfg.Port,
		path:    cfg.Path,
		secret:  cfg.Secret,
		sender:  cfg.Sender,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Start runs the HTTP server until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleSend)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("relay server starting", "addr", s.server.Addr, "path", s.path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("relay server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	}
}

func (s *Server) handleSend(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB max
	if err != nil {
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if s.secret != "" {
		sig := r.Header.Get("X-Signature-256")
		if sig == "" {
			http.Error(rw, "Missing signature", http.StatusUnauthorized)
			return
		}
		if !verifyHMAC(body, s.secret, sig) {
			http.Error(rw, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(rw, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if payload.Content == "" {
		http.Error(rw, "Content is required", http.StatusBadRequest)
		return
	}

	msg, err := message.NewBuilder().
		SetContent(payload.Content).
		SetUsername(payload.Username).
		SetAvatarURL(payload.AvatarURL).
		SetTTS(payload.TTS).
		Build()
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	// The dispatch must outlive this handler; only its values carry over.
	fut := s.sender.Send(context.WithoutCancel(r.Context()), msg)
	metrics.RelayRequests.Inc()

	s.logger.Info("relay request accepted",
		"id", fut.ID(),
		"content_len", len(payload.Content),
	)

	rw.WriteHeader(http.StatusAccepted)
	json.NewEncoder(rw).Encode(map[string]string{
		"status": "accepted",
		"id":     fut.ID(),
	})
}

// verifyHMAC verifies the HMAC-SHA256 signature of the body.
func verifyHMAC(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
