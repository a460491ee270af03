package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"formledger/internal/bootstrap"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/errs"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token",
	RunE: withApp(func(cmd *cobra.Command, svc *bootstrap.Services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		subject, _ := cmd.Flags().GetString("subject")
		roles, _ := cmd.Flags().GetStringSlice("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = svc.App.Config.Auth.TokenTTL
		}

		raw, err := svc.Issuer.IssueToken(strings.TrimSpace(subject), roles, ttl)
		if err != nil {
			return errs.Wrap(err, "issue token")
		}
		logging.Info(ctx, "admin token issued",
			slog.String("subject", subject),
			slog.Any("roles", roles),
			slog.Duration("ttl", ttl),
		)

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), raw); err != nil {
			return errs.Wrap(err, "write token")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("subject", "admin", "Token subject")
	tokenCmd.Flags().StringSlice("role", []string{access.RoleAdministrator}, "Granted roles")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default: auth.token_ttl)")
}
