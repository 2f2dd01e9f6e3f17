package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/DonQuixuote/shape-tcg/internal/api"
	"github.com/DonQuixuote/shape-tcg/internal/config"
	"github.com/DonQuixuote/shape-tcg/internal/constants"
	"github.com/DonQuixuote/shape-tcg/internal/logging"
	"github.com/DonQuixuote/shape-tcg/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Missing or invalid configuration", err, logging.Fields{"hint": "see shapetcg.example.yaml and the SHAPETCG_* environment variables"})
	}
	logging.SetLevel(logging.ParseLevel(cfg.Env.LogLevel))
	logging.Info("starting shape-tcg", logging.Fields{"version": version.Get(), "config_path": cfg.Env.ConfigPath})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := buildApp(ctx, cfg)
	defer svc.close()

	startReaper(ctx, svc.battles, time.Second)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.NewRouter(svc.handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("server shutdown", err, nil)
		}
	}()

	logging.Info("Server started", logging.Fields{constants.LogFieldAddr: cfg.Server.Address})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal("Failed to start server", err, nil)
	}
	logging.Info("Server stopped", nil)
}
