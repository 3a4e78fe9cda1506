package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/bridge"
	"github.com/DoyleJ11/historic-flag-overlay/internal/config"
	"github.com/DoyleJ11/historic-flag-overlay/internal/discovery"
	"github.com/DoyleJ11/historic-flag-overlay/internal/dom/roddom"
	"github.com/DoyleJ11/historic-flag-overlay/internal/logging"
	"github.com/DoyleJ11/historic-flag-overlay/internal/portcache"
	"github.com/DoyleJ11/historic-flag-overlay/internal/viewsync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewConsole("info").Fatal("load config", zap.Error(err))
	}
	console := logging.NewConsole(cfg.LogLevel)
	defer console.Sync()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The page and the bridge outlive the signal so the decoration can be
	// taken down before exit.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := portcache.Open(cfg.Discovery.CachePath, cfg.Discovery.CacheKey)
	if err != nil {
		console.Fatal("open port cache", zap.String("path", cfg.Discovery.CachePath), zap.Error(err))
	}

	// Connection chatter stays on the console so it never piles up in the
	// queue while the host is down.
	resolver := discovery.NewResolver(cfg.Discovery, cache, console.Named("discovery"))
	client := bridge.NewClient(resolver, cfg.Bridge, console.Named("bridge"))

	log := logging.WithTelemetry(console, client, cfg.LogSource)

	doc, err := roddom.Connect(ctx, cfg.Client, console.Named("cdp"))
	if err != nil {
		_ = cache.Close()
		console.Fatal("attach to client", zap.String("devtools", cfg.Client.DevToolsURL), zap.Error(err))
	}

	syncer := viewsync.New(doc, client, log.Named("viewsync"), cfg.View, viewsync.DefaultLocator())
	client.OnMessage(syncer.Deliver)
	client.Start(ctx)

	go func() {
		<-sigCtx.Done()
		syncer.Inbox() <- viewsync.Shutdown{}
	}()

	log.Info("overlay running", zap.String("cache", cfg.Discovery.CachePath))
	runErr := syncer.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	cancel()

	if err := multierr.Combine(runErr, client.Close(), doc.Close(), cache.Close()); err != nil {
		console.Error("shutdown", zap.Error(err))
		os.Exit(1)
	}
	console.Info("overlay stopped")
}
