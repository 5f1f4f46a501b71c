package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cfg
		if out.HTTP.JWTSecret != "" {
			out.HTTP.JWTSecret = redacted
		}
		if out.Notifier.AuthToken != "" {
			out.Notifier.AuthToken = redacted
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
