package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/smartbin/internal/api"
	"github.com/rewired-gh/smartbin/internal/engine"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/sensor"
	"github.com/rewired-gh/smartbin/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the bin backend and serve its state",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", cfgPath)

	// Initialize backend client
	backend := sensor.NewClient(
		cfg.Sensor.BaseURL,
		cfg.Sensor.Timeout,
		sensor.WithRetries(cfg.Sensor.MaxRetries, cfg.Sensor.RetryDelayBase),
	)

	eng, err := engine.New(cfg.InitialState(), engine.Sources{
		Logs:    backend,
		Fill:    backend,
		Health:  backend,
		Clearer: backend,
	}, cfg.EngineOptions())
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	// Initialize Telegram client
	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return err
		}
		eng.AddPublisher(tg)
		logger.Info("Telegram client initialized successfully")

		g.Go(func() error {
			tg.Run(gctx)
			return nil
		})
		g.Go(func() error {
			return tg.ListenForCommands(gctx, eng)
		})
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	if cfg.API.Enabled {
		handler := api.Handler(eng, cfg.API.AllowedOrigins)
		g.Go(func() error {
			return api.Serve(gctx, cfg.API.ListenAddr, handler)
		})
	} else {
		logger.Debug("HTTP API disabled")
	}

	g.Go(func() error {
		return eng.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error: %v", err)
		return err
	}
	logger.Info("Service stopped")
	return nil
}
