package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/gate-remote/internal/api"
	"github.com/thatsimonsguy/gate-remote/internal/app"
	"github.com/thatsimonsguy/gate-remote/internal/config"
	"github.com/thatsimonsguy/gate-remote/internal/datadog"
	"github.com/thatsimonsguy/gate-remote/internal/env"
	"github.com/thatsimonsguy/gate-remote/internal/logging"
	"github.com/thatsimonsguy/gate-remote/internal/notifications"
	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
	"github.com/thatsimonsguy/gate-remote/internal/poller"
	"github.com/thatsimonsguy/gate-remote/system/shutdown"
)

func main() {
	cfg := config.Load()
	env.Cfg = &cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("db", cfg.DBPath).
		Msg("Starting gate remote")

	datadog.InitMetrics()
	notifications.Init()

	var opts []orchestrator.Option
	if notifications.Enabled() {
		opts = append(opts, orchestrator.WithNotifier(notifications.Notifier{}))
	}
	opts = append(opts, orchestrator.WithListener(func(s orchestrator.DisplayState) {
		log.Debug().Str("state", string(s.Kind())).Msg("Gate display state changed")
	}))

	stack, err := app.Build(&cfg, opts...)
	if err != nil {
		shutdown.ShutdownWithError(err, "Failed to initialize gate stack")
		return
	}

	stack.Orchestrator.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pollDone := poller.Run(ctx, stack.Orchestrator, time.Duration(cfg.PollIntervalSeconds)*time.Second)

	server := api.NewServer(stack.Orchestrator, stack.Prober, stack.Credentials, stack.History)
	httpServer := server.Start(fmt.Sprintf("%s:%d", cfg.ListenAddr, cfg.ListenPort))

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	<-pollDone
	shutdown.Graceful(httpServer, stack.Orchestrator, stack.Conn)
}
