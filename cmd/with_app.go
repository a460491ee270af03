package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"formledger/internal/bootstrap"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
)

// withApp boots the fx graph for one command run. Once config is loaded the
// command context switches to a logger built from log.level and log.format.
func withApp(run func(cmd *cobra.Command, svc *bootstrap.Services) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var services *bootstrap.Services
		fxApp := fx.New(
			bootstrap.Module,
			fx.NopLogger,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&services),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		logCfg := services.App.Config.Log
		if strings.TrimSpace(logLevel) != "" {
			logCfg.Level = logLevel
		}
		runCtx := logging.WithLogger(cmd.Context(), logging.New(cmd.ErrOrStderr(), logCfg.Level, logCfg.Format))
		runCtx = logging.WithAttrs(runCtx, slog.String("env", services.App.Config.App.Env))
		cmd.SetContext(runCtx)

		if err := run(cmd, services); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
