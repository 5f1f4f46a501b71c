package cmd

import (
	"encoding/json"
	"errors"
	"io"

	"presence-monitor/internal/journal"

	"github.com/spf13/cobra"
)

var (
	journalPath   string
	journalDevice string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the CBOR event journal",
}

var journalDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print journal records as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := journalPath
		if path == "" {
			path = cfg.Journal.Path
		}
		if path == "" {
			return errors.New("no journal path: set --path or journal.path")
		}
		r, err := journal.NewReader(path, journalDevice)
		if err != nil {
			return err
		}
		defer r.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := enc.Encode(rec.Entry()); err != nil {
				return err
			}
		}
	},
}

func init() {
	journalDumpCmd.Flags().StringVar(&journalPath, "path", "", "journal file (defaults to journal.path)")
	journalDumpCmd.Flags().StringVar(&journalDevice, "device", "", "only records for this device id")
	journalCmd.AddCommand(journalDumpCmd)
	rootCmd.AddCommand(journalCmd)
}
