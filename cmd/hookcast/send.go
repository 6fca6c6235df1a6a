package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hookcast/internal/config"
	"hookcast/internal/dispatch"
	"hookcast/internal/history"
	"hookcast/internal/message"
	"hookcast/internal/webhook"
)

func sendCmd() *cobra.Command {
	var (
		content      string
		username     string
		avatarURL    string
		tts          bool
		files        []string
		manifestPath string
		timeoutSec   int
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to the configured webhook endpoint",
		Long:  "Builds a message from flags or a YAML manifest, dispatches it, and waits for the delivery outcome.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.Endpoint.URL == "" {
				return fmt.Errorf("endpoint.url is not configured (run 'hookcast init' and edit %s)", resolveConfigPath())
			}

			msg, err := buildMessage(content, username, avatarURL, tts, files, manifestPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, store, dispatcher, err := buildStack(ctx, cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			fut := client.Send(ctx, msg)

			waitCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
			defer cancel()
			res, err := fut.Wait(waitCtx)
			if err != nil {
				fut.Cancel()
				return fmt.Errorf("send failed: %w", err)
			}

			logger.Info("delivered", "id", fut.ID(), "status", res.Status)
			stop()
			dispatcher.Stop()
			return nil
		},
	}

	cmd.Flags().StringVarP(&content, "content", "m", "", "message text content")
	cmd.Flags().StringVar(&username, "username", "", "sender name override")
	cmd.Flags().StringVar(&avatarURL, "avatar", "", "sender avatar URL override")
	cmd.Flags().BoolVar(&tts, "tts", false, "send as text-to-speech")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "attachment as name=path or path (repeatable, max 20)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "YAML manifest describing the message")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 30, "seconds to wait for delivery")

	return cmd
}

// buildMessage assembles the message from the CLI inputs. Content and
// files are mutually exclusive, matching the construction API.
func buildMessage(content, username, avatarURL string, tts bool, files []string, manifestPath string) (*message.Message, error) {
	if manifestPath != "" {
		if content != "" || len(files) > 0 {
			return nil, fmt.Errorf("--manifest cannot be combined with --content or --file")
		}
		return message.LoadManifest(manifestPath)
	}

	if len(files) > 0 {
		if content != "" {
			return nil, fmt.Errorf("--content and --file cannot be combined in one message")
		}
		sources := make(map[string]message.DataSource, len(files))
		for _, spec := range files {
			name, path, ok := strings.Cut(spec, "=")
			if !ok {
				name, path = filepath.Base(spec), spec
			}
			src, err := message.FileSource(path)
			if err != nil {
				return nil, err
			}
			sources[name] = src
		}
		msg, err := message.Files(sources)
		if err != nil {
			return nil, err
		}
		out := *msg
		out.Username = username
		out.AvatarURL = avatarURL
		out.TTS = tts
		return &out, nil
	}

	return message.NewBuilder().
		SetContent(content).
		SetUsername(username).
		SetAvatarURL(avatarURL).
		SetTTS(tts).
		Build()
}

// buildStack wires the dispatcher, optional history store, and client
// from config, and starts the dispatcher workers.
func buildStack(ctx context.Context, cfg *config.Config) (*webhook.Client, *history.Store, *dispatch.Dispatcher, error) {
	dispatcher := dispatch.New(dispatch.Config{
		QueueSize:     cfg.Dispatch.QueueSize,
		Workers:       cfg.Dispatch.Workers,
		RatePerMinute: cfg.Dispatch.RatePerMinute,
		Burst:         cfg.Dispatch.Burst,
		Timeout:       time.Duration(cfg.Dispatch.TimeoutSeconds) * time.Second,
		MaxRetries:    cfg.Dispatch.MaxRetries,
		Logger:        logger,
	})
	dispatcher.Start(ctx)

	var store *history.Store
	if cfg.History.Enabled {
		var err error
		store, err = history.Open(cfg.History.DBPath, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("history store: %w", err)
		}
	}

	client, err := webhook.NewClient(webhook.ClientConfig{
		URL:        cfg.Endpoint.URL,
		Username:   cfg.Endpoint.Username,
		AvatarURL:  cfg.Endpoint.AvatarURL,
		Dispatcher: dispatcher,
		History:    store,
		Logger:     logger,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, nil, err
	}
	return client, store, dispatcher, nil
}
