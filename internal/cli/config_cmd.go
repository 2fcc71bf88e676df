package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slicerio/pkg/config"
	"slicerio/pkg/logging"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the slicerio configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a configuration file holding the default settings",
		Long: "Writes the default configuration to PATH, or to the file named by --config " +
			"when PATH is omitted. An existing file is kept unless --force is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	saveCmd := &cobra.Command{
		Use:   "save PATH",
		Short: "Write the effective configuration, as loaded from --config, to PATH",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigSave,
	}

	configCmd.AddCommand(initCmd, saveCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) == 1 {
		path = args[0]
	}
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	} else if err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	logging.Default().Info("default config written", "path", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

func runConfigSave(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}
	logging.Default().Info("config saved", "path", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
	return nil
}
