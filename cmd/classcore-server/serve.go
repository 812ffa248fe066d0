package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/classcore/classcore/internal/authz"
	"github.com/classcore/classcore/internal/config"
	"github.com/classcore/classcore/internal/httpapi"
	"github.com/classcore/classcore/internal/logging"
	"github.com/classcore/classcore/internal/metrics"
	"github.com/classcore/classcore/internal/room"
	"github.com/classcore/classcore/internal/session"
	"github.com/classcore/classcore/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling HTTP server, Room Hub, and metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	if err := config.WatchReload(cfgFile, func(updated *config.Config) {
		log.Info("config reloaded", zap.String("log_level", updated.LogLevel))
	}); err != nil {
		log.Warn("config hot-reload watcher not started", zap.Error(err))
	}

	store, err := storage.Connect(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	authorizer := authz.NewStatic()

	mgr := session.NewManager(
		authorizer,
		store,
		encoderFactory,
		unsupportedVideoDecoder,
		unsupportedAudioDecoder,
		session.Options{
			RecordingsDir:       cfg.RecordingsDir,
			ContainerExt:        cfg.ContainerExt,
			VideoTickHz:         cfg.VideoTickHz,
			AudioTickMs:         cfg.AudioTickMs,
			NegotiationTimeout:  cfg.NegotiationTimeout,
			EncoderFlushTimeout: cfg.EncoderFlushTimeout,
		},
		log,
	)

	hub := room.NewWithTimings(log, cfg.RoomPingInterval, cfg.RoomPongTimeout)

	mux := http.NewServeMux()
	httpapi.NewServer(mgr, log).Register(mux)
	httpapi.NewRoomServer(hub, log).Register(mux)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("signaling server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("signaling server: %w", err)
		}
	}()
	go func() {
		log.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error, shutting down", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("ending in-flight recording sessions")
	mgr.Shutdown(shutdownCtx)

	log.Info("shutdown complete")
	return nil
}

