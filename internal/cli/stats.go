package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"slicerio/internal/models"
	"slicerio/pkg/segmentation"
	"slicerio/pkg/statistics"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Show voxel counts, volumes and centroids of every segment",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}

	cmd.Flags().IntP("workers", "w", 0, "Segments measured in parallel (default: all cores)")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	path := args[0]
	workers, _ := cmd.Flags().GetInt("workers")

	s, err := segmentation.ReadFile(path, segmentation.ReadOptions{})
	if err != nil {
		return err
	}
	stats, err := statistics.Compute(s, statistics.Options{Workers: workers})
	if err != nil {
		return err
	}

	report := models.StatsReport{File: path, Segments: stats}
	if formatFlag == "json" {
		return printJSON(cmd.OutOrStdout(), report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "File: %s\n", path)
	for _, st := range stats {
		fmt.Fprintln(cmd.OutOrStdout(), st.Summary())
	}
	return nil
}
