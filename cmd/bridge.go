package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"transcript-restream-service/internal/config"
	"transcript-restream-service/internal/events"
	"transcript-restream-service/internal/observability"
	"transcript-restream-service/internal/service/bridge"
	"transcript-restream-service/internal/webhook"
)

func bridgeCmd() *cobra.Command {
	var (
		source       string
		transcriptID string
		interval     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Forward a live transcription stream to the bridge webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if source != "" {
				cfg.Bridge.Source = source
			}
			if transcriptID != "" {
				cfg.Bridge.TranscriptID = transcriptID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.ValidateBridge(); err != nil {
				return err
			}
			return runBridge(contextOrBackground(cmd.Context()), cfg, interval)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "frame source: websocket or simulated (default from BRIDGE_SOURCE)")
	cmd.Flags().StringVar(&transcriptID, "transcript-id", "", "upstream transcript id (default from BRIDGE_TRANSCRIPT_ID)")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "delay between simulated frames")
	return cmd
}

func newFrameSource(cfg *config.Config, interval time.Duration) bridge.FrameSource {
	if cfg.Bridge.Source == config.BridgeSourceSimulated {
		src := bridge.NewSimulatedSource(interval)
		src.Token = cfg.Bridge.APIToken
		return src
	}
	return bridge.NewWebsocketSource(cfg.Bridge.URL, nil)
}

func runBridge(parent context.Context, cfg *config.Config, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicRecords: cfg.Kafka.TopicRecords,
		TopicBridge:  cfg.Kafka.TopicBridge,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	obsServer := observability.NewServer(cfg.Observability.MetricsAddr, nil)
	obsServer.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obsServer.Shutdown(shutdownCtx)
	}()

	queue := bridge.NewQueue()
	adapter := bridge.NewAdapter(bridge.Config{
		Token:            cfg.Bridge.APIToken,
		TranscriptID:     cfg.Bridge.TranscriptID,
		AcceptBareEvents: cfg.Bridge.AcceptBareEvents,
	}, newFrameSource(cfg, interval), queue)
	forwarder := bridge.NewForwarder(cfg.Bridge.WebhookURL, cfg.Bridge.TranscriptID,
		webhook.NewClient(cfg.Webhook.Timeout), publisher)

	log.Info().
		Str("source", cfg.Bridge.Source).
		Str("transcriptId", cfg.Bridge.TranscriptID).
		Str("webhook", cfg.Bridge.WebhookURL).
		Msg("Bridge starting")

	// The forwarder keeps draining after the read loop ends, so it does not
	// share a cancel-on-error context with the adapter.
	var g errgroup.Group
	g.Go(func() error {
		return adapter.Run(ctx)
	})
	g.Go(func() error {
		err := forwarder.Run(ctx, queue)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info().Str("state", adapter.State().String()).Err(err).Msg("Bridge stopped")
	return err
}
