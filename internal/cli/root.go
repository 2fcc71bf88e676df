// Package cli implements the slicerio CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"slicerio/pkg/config"
	"slicerio/pkg/logging"
)

var (
	configPath string
	logLevel   string
	formatFlag string

	// cfg is loaded before every command runs.
	cfg = config.DefaultConfig()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "slicerio",
	Short: "Inspect and extract segments of .seg.nrrd segmentation files",
	Long: "Reads and writes labelmap segmentation files with per-segment metadata, " +
		"extracts and relabels segments, and measures or previews them.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "slicerio.yaml", "Configuration file; defaults apply when it does not exist")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides logging.level)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	if cfg.Logging.Format == "json" {
		logging.SetDefault(logging.NewJSONLogger(os.Stderr, lvl))
	} else {
		logging.SetDefault(logging.NewTextLogger(os.Stderr, lvl))
	}

	switch formatFlag {
	case "json", "text":
	default:
		return fmt.Errorf("unknown output format %q (must be json or text)", formatFlag)
	}
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
