package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"formledger/internal/bootstrap"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/errs"
	"formledger/internal/usecase/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consoleSubmissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Browse captured submissions",
	RunE: withApp(func(cmd *cobra.Command, svc *bootstrap.Services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		formTitle, _ := cmd.Flags().GetString("form-title")
		limit, _ := cmd.Flags().GetString("limit")
		operator, _ := cmd.Flags().GetString("operator")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := console.NewSubmissionsModel(ctx, svc.Export, console.Options{
			Principal:       access.Operator(operator),
			FormTitle:       formTitle,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run submissions console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleSubmissionsCmd)

	consoleSubmissionsCmd.Flags().String("form-title", "", "Case-insensitive form title substring")
	consoleSubmissionsCmd.Flags().String("limit", "", "Maximum rows (default 50)")
	consoleSubmissionsCmd.Flags().String("operator", "", "Operator name recorded in logs")
	consoleSubmissionsCmd.Flags().Duration("refresh-interval", 30*time.Second, "Auto refresh interval")
}
