package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/oteto/gonkey-playground/internal/helpers"
	"github.com/oteto/gonkey-playground/web"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the playground page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address")
	a.bind("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	_, logger := helpers.SetupLogger(a.handler, "playground", "serve")

	launcher, err := newLauncher(a.cfg.Runtime, a.handler)
	if err != nil {
		return err
	}
	shell, err := web.New(a.handler, launcher, web.WithInitialSource(sampleSource(a.cfg.Runtime.Engine)))
	if err != nil {
		return err
	}

	boot := shell.Start(ctx)
	go func() {
		if err := <-boot; err != nil {
			logger.ErrorContext(ctx, "runtime unavailable", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           shell.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.InfoContext(ctx, "playground listening", "addr", a.cfg.HTTP.Addr, "engine", a.cfg.Runtime.Engine)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if cerr := shell.Close(shutdownCtx); cerr != nil {
		logger.Warn("failed to close runtime", "error", cerr)
	}
	return err
}
