package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"formledger/internal/bootstrap"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
	natssub "formledger/internal/infrastructure/messaging/nats"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the capture webhook, admin export and metrics endpoints",
	RunE: withApp(func(cmd *cobra.Command, svc *bootstrap.Services) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		cfg := svc.App.Config
		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = cfg.HTTP.Addr
		}

		if cfg.Auth.JWTSecret == "" {
			logging.Warn(ctx, "auth.jwt_secret is empty, admin endpoints will refuse every request")
		}
		if cfg.Capture.WebhookSecret == "" {
			logging.Warn(ctx, "capture.webhook_secret is empty, webhook signatures are not checked")
		}

		if cfg.Capture.ProfileFile != "" {
			go func() {
				if err := svc.Profile.Watch(ctx); err != nil {
					logging.Error(ctx, "field profile watch stopped", slog.Any("err", errs.Loggable(err)))
				}
			}()
		}

		if cfg.NATS.Enabled {
			sub, err := natssub.Connect(ctx, natssub.Config{
				URL:     cfg.NATS.URL,
				Name:    cfg.App.Name,
				Subject: cfg.NATS.Subject,
				Queue:   cfg.NATS.Queue,
				Token:   cfg.NATS.Token,
			})
			if err != nil {
				return errs.Wrap(err, "connect submission events")
			}
			defer func() {
				if err := sub.Close(); err != nil {
					logging.Warn(ctx, "close nats subscriber failed", slog.Any("err", errs.Loggable(err)))
				}
			}()
			err = sub.Start(ctx, func(msgCtx context.Context, data []byte) error {
				_, captureErr := svc.Capture.Capture(msgCtx, data)
				return captureErr
			})
			if err != nil {
				return errs.Wrap(err, "start submission events")
			}
		}

		server := &http.Server{
			Addr: addr,
			Handler: newRouter(ctx, routerDeps{
				Capture:       svc.Capture,
				Export:        svc.Export,
				Issuer:        svc.Issuer,
				Metrics:       svc.Metrics,
				WebhookSecret: cfg.Capture.WebhookSecret,
				MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
			}),
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		}

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server started", slog.String("addr", addr))
			serveErr <- server.ListenAndServe()
		}()

		select {
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "http server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve http")
			}
			return nil
		case <-ctx.Done():
		}

		logging.Info(ctx, "http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr)")
}
