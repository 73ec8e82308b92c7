package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

type serverConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	var srvCfg serverConfig
	if err := env.Parse(&srvCfg); err != nil {
		return fmt.Errorf("parse server env: %w", err)
	}

	rt, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		return err
	}
	defer rt.Close()
	sugar := rt.sugar
	sugar.Info("starting waitlist service")

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.app.Init(ctx); err != nil {
		sugar.Errorw("schema init failed", "err", err)
		return err
	}
	if err := rt.app.BootstrapAdmin(ctx, rt.adminCfg); err != nil {
		sugar.Errorw("admin bootstrap failed", "err", err)
		return err
	}

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           rt.app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", srvCfg.Addr)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			sugar.Errorw("http server failed", "err", err)
			return err
		}
	}

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
	return nil
}
