package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"formledger/internal/bootstrap"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture one submission event from a JSON file or stdin",
	RunE: withApp(func(cmd *cobra.Command, svc *bootstrap.Services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		path, _ := cmd.Flags().GetString("file")
		body, err := readEventBody(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}

		result, err := svc.Capture.Capture(ctx, body)
		if err != nil {
			return errs.Wrap(err, "capture submission")
		}

		out := cmd.OutOrStdout()
		if !result.Captured {
			_, err = fmt.Fprintf(out, "submission not captured: %s\n", result.Reason)
		} else {
			_, err = fmt.Fprintf(out, "submission captured: id=%d form=%q\n", result.Record.ID, result.Record.FormTitle)
		}
		if err != nil {
			return errs.Wrap(err, "write capture output")
		}
		return nil
	}),
}

func readEventBody(stdin io.Reader, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		body, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errs.Wrap(err, "read stdin")
		}
		return body, nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "read event file %q", path)
	}
	return body, nil
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringP("file", "f", "", "Event JSON file (default: stdin)")
}
