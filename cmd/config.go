package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"formledger/internal/bootstrap"
	"formledger/internal/errs"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	RunE: withApp(func(cmd *cobra.Command, svc *bootstrap.Services) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(svc.App.Config.Redacted()); err != nil {
			return errs.Wrap(err, "encode config")
		}
		return errs.Wrap(enc.Close(), "flush config")
	}),
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}
