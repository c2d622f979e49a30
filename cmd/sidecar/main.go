// Command sidecar tails a node's SSE feed and re-serves it: events are
// persisted to the event log, fanned out to local SSE subscribers, and
// optionally mirrored onto a Redis channel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blockfeed/sidecar/pkg/chain"
	"github.com/blockfeed/sidecar/pkg/config"
	"github.com/blockfeed/sidecar/pkg/listener"
	"github.com/blockfeed/sidecar/pkg/observability"
	"github.com/blockfeed/sidecar/pkg/server"
	"github.com/blockfeed/sidecar/pkg/sse"
	"github.com/blockfeed/sidecar/pkg/store"
	"github.com/blockfeed/sidecar/pkg/stream"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sidecar exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		profileName = flag.String("profile", "", "profile overlay name (profiles dir: profile_<name>.yaml)")
		profilesDir = flag.String("profiles-dir", "profiles", "directory holding profile overlays")
	)
	flag.Parse()

	cfg := config.Load()
	if *profileName != "" {
		profile, err := config.LoadProfile(*profilesDir, *profileName)
		if err != nil {
			return err
		}
		profile.Apply(cfg)
	}

	setupLogging(cfg.LogLevel)
	logger := slog.Default().With("component", "sidecar")

	version, err := chain.ParseProtocolVersion(cfg.ProtocolVersion)
	if err != nil {
		return fmt.Errorf("configured protocol version: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "blockfeed-sidecar",
		ServiceVersion: version.String(),
		Environment:    "production",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        cfg.OTLPEndpoint != "",
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	}()

	eventLog, err := store.Open(cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("open event log (%s): %w", cfg.StoreDriver, err)
	}
	defer eventLog.Close()

	broadcaster := stream.NewBroadcaster(cfg.SubscriberBuffer)
	defer broadcaster.Close()

	var mirror *stream.RedisPublisher
	if cfg.RedisAddr != "" {
		mirror = stream.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisChannel, cfg.RedisDB)
		if err := mirror.Ping(ctx); err != nil {
			return fmt.Errorf("redis mirror: %w", err)
		}
		defer mirror.Close()
		logger.Info("redis mirror enabled", "addr", cfg.RedisAddr, "channel", cfg.RedisChannel)
	}

	handle := func(ctx context.Context, id *uint64, ev sse.Event) error {
		obs.RecordIngested(ctx, string(ev.Type()))

		data, err := ev.Encode()
		if err != nil {
			return fmt.Errorf("re-encode %s event: %w", ev.Type(), err)
		}
		assigned, err := eventLog.Append(ctx, ev.Type(), data)
		if err != nil {
			return err
		}
		broadcaster.Publish(stream.Delivery{ID: assigned, Type: ev.Type(), Data: data})
		obs.RecordPublished(ctx, string(ev.Type()))

		if mirror != nil {
			if err := mirror.Publish(ctx, stream.Delivery{ID: assigned, Type: ev.Type(), Data: data}); err != nil {
				// The mirror is best effort; the durable log already has the event.
				logger.Warn("redis mirror publish failed", "event_id", assigned, "error", err)
			}
		}
		return nil
	}

	nodeListener := listener.New(cfg.NodeStreamURL, nil, handle)
	nodeListener.OnSkip = func(reason string) { obs.RecordDropped(ctx, reason) }
	listenerDone := make(chan error, 1)
	go func() {
		listenerDone <- nodeListener.Run(ctx)
	}()

	limiter := server.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	feed := server.New(version, broadcaster, eventLog, cfg.ReplayLimit)
	feed.OnSubscriber = func(delta int64) { obs.SubscriberConnected(ctx, delta) }
	srv := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           feed.Handler(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverDone := make(chan error, 1)
	go func() {
		logger.Info("serving event feed", "addr", cfg.BindAddr, "api_version", version.String())
		serverDone <- srv.ListenAndServe()
	}()

	var runErr error
	listenerFinished := false
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverDone:
		runErr = fmt.Errorf("http server: %w", err)
	case err := <-listenerDone:
		listenerFinished = true
		// The listener only stops on cancellation; anything else is fatal.
		if ctx.Err() == nil {
			runErr = fmt.Errorf("node listener: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("http shutdown", "error", err)
	}
	if !listenerFinished {
		<-listenerDone
	}
	return runErr
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
