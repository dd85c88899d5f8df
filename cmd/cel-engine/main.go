package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/cel-engine/internal/api"
	"github.com/snarg/cel-engine/internal/backend"
	"github.com/snarg/cel-engine/internal/bus"
	"github.com/snarg/cel-engine/internal/cel"
	"github.com/snarg/cel-engine/internal/config"
	"github.com/snarg/cel-engine/internal/confwatch"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.CELConf, "cel-conf", "", "path to cel.conf")
	flag.StringVar(&overrides.HTTPAddr, "http-addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace..error)")
	flag.StringVar(&overrides.CSVPath, "csv", "", "csv backend output file")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("cel-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Engine + event configuration. A missing cel.conf leaves the engine on
	// its disabled defaults; a present-but-broken one is fatal.
	engine := cel.New(log)
	if _, statErr := os.Stat(cfg.CELConf); statErr == nil {
		if err := engine.Reload(cfg.CELConf); err != nil {
			log.Fatal().Err(err).Str("path", cfg.CELConf).Msg("failed to load cel.conf")
		}
	} else {
		log.Warn().Str("path", cfg.CELConf).Msg("cel.conf not found, event logging disabled")
	}

	// Backends
	if cfg.CSVPath != "" {
		dateFormat := func() string { return engine.Config().DateFormat }
		csvb, err := backend.NewCSV(cfg.CSVPath, dateFormat, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open csv backend")
		}
		defer csvb.Close()
		if err := engine.RegisterBackend("csv", csvb.Write); err != nil {
			log.Fatal().Err(err).Msg("failed to register csv backend")
		}
	}

	if cfg.DatabaseURL != "" {
		pgb, err := backend.NewPostgres(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect postgres backend")
		}
		defer pgb.Close()
		if err := engine.RegisterBackend("postgres", pgb.Write); err != nil {
			log.Fatal().Err(err).Msg("failed to register postgres backend")
		}
	}

	if cfg.MQTTBrokerURL != "" {
		mqttb, err := backend.NewMQTT(backend.MQTTOptions{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Topic:     cfg.MQTTTopic,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Log:       log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect mqtt backend")
		}
		defer mqttb.Close()
		if err := engine.RegisterBackend("mqtt", mqttb.Write); err != nil {
			log.Fatal().Err(err).Msg("failed to register mqtt backend")
		}
	}

	// Message bus + router
	ps := bus.New(cfg.BusBuffer, log)
	if err := engine.Attach(ps, bus.NewLogger(log)); err != nil {
		log.Fatal().Err(err).Msg("failed to build message router")
	}

	routerErr := make(chan error, 1)
	go func() {
		routerErr <- engine.Run(ctx)
	}()

	// Config hot reload
	watcher := confwatch.New(engine, cfg.CELConf, log)
	if err := watcher.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable, reload via API only")
	} else {
		defer watcher.Stop()
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, engine, version, startTime, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal, router exit or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-routerErr:
		if err != nil {
			log.Error().Err(err).Msg("message router error")
		}
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if err := engine.Close(); err != nil {
		log.Error().Err(err).Msg("message router shutdown error")
	}

	log.Info().Msg("cel-engine stopped")
}
