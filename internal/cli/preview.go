package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"slicerio/pkg/logging"
	"slicerio/pkg/segmentation"
	"slicerio/pkg/visualization"
)

func init() {
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Render every slice along an axis as colored PNG images",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}

	cmd.Flags().String("axis", "", "Slicing axis x, y or z (overrides preview.axis)")
	cmd.Flags().StringP("out", "o", "preview", "Output directory")

	RootCmd.AddCommand(cmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	axis, _ := cmd.Flags().GetString("axis")
	if axis == "" {
		axis = cfg.Preview.Axis
	}
	outDir, _ := cmd.Flags().GetString("out")

	s, err := segmentation.ReadFile(path, segmentation.ReadOptions{})
	if err != nil {
		return err
	}
	viewer, err := visualization.NewViewer(s)
	if err != nil {
		return err
	}
	if err := viewer.SaveSliceSequence(axis, outDir); err != nil {
		return fmt.Errorf("failed to save %s-axis slices: %w", axis, err)
	}
	logging.Default().WithFile(path).Info("preview written", "axis", axis, "dir", outDir)
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s-axis slices to %s\n", axis, outDir)
	return nil
}
