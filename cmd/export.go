package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"formledger/internal/bootstrap"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/usecase/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export submissions as CSV",
	Long:  "Runs the same filtered export as the admin page, as the local operator.",
	RunE: withApp(func(cmd *cobra.Command, svc *bootstrap.Services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		flags := cmd.Flags()
		from, _ := flags.GetString("from")
		to, _ := flags.GetString("to")
		formTitle, _ := flags.GetString("form-title")
		limit, _ := flags.GetString("limit")
		operator, _ := flags.GetString("operator")
		output, _ := flags.GetString("output")

		exp, err := svc.Export.Prepare(ctx, access.Operator(operator), submission.ExportParams{
			From:      from,
			To:        to,
			FormTitle: formTitle,
			Limit:     limit,
		})
		if err != nil {
			return errs.Wrap(err, "prepare export")
		}
		if exp.Empty() {
			if _, err := fmt.Fprintln(cmd.ErrOrStderr(), emptyExportText); err != nil {
				return errs.Wrap(err, "write export output")
			}
			return nil
		}

		return writeExport(cmd.OutOrStdout(), cmd.ErrOrStderr(), output, exp)
	}),
}

// writeExport writes to stdout for "-", to output as a file, or into output
// under the export filename when output is a directory.
func writeExport(stdout io.Writer, stderr io.Writer, output string, exp export.Export) error {
	output = strings.TrimSpace(output)
	if output == "-" {
		return errs.Wrap(exp.WriteCSV(stdout), "write csv")
	}
	if output == "" {
		output = exp.Filename
	} else if info, err := os.Stat(output); err == nil && info.IsDir() {
		output = filepath.Join(output, exp.Filename)
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.Wrapf(err, "create %q", output)
	}
	if err := exp.WriteCSV(f); err != nil {
		_ = f.Close()
		return errs.Wrapf(err, "write %q", output)
	}
	if err := f.Close(); err != nil {
		return errs.Wrapf(err, "close %q", output)
	}

	if _, err := fmt.Fprintf(stderr, "exported %d submissions to %s\n", len(exp.Records), output); err != nil {
		return errs.Wrap(err, "write export output")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("from", "", "First day to include (YYYY-MM-DD, export timezone)")
	exportCmd.Flags().String("to", "", "Last day to include (YYYY-MM-DD, export timezone)")
	exportCmd.Flags().String("form-title", "", "Case-insensitive form title substring")
	exportCmd.Flags().String("limit", "", "Maximum rows (default 1000)")
	exportCmd.Flags().String("operator", "", "Operator name recorded in logs")
	exportCmd.Flags().StringP("output", "o", "", "Output file or directory, '-' for stdout (default: generated filename)")
}
