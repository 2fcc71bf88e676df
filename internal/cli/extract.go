package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"slicerio/internal/models"
	"slicerio/pkg/config"
	"slicerio/pkg/logging"
	"slicerio/pkg/segmentation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "extract IN OUT",
		Short: "Extract segments into a new single-layer segmentation",
		Long: "Merges the segments picked by each selection into one output segment with the\n" +
			"given label value. Later selections win where voxels overlap.",
		Args: cobra.ExactArgs(2),
		RunE: runExtract,
	}

	cmd.Flags().StringArrayP("select", "s", nil, "Selection NAME=LABEL (repeatable)")
	cmd.Flags().String("selections", "", "YAML file listing selections")
	cmd.Flags().Bool("minimal-extent", false, "Use the union of the merged extents instead of the full volume (overrides extract.minimalExtent)")

	RootCmd.AddCommand(cmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	specs, _ := cmd.Flags().GetStringArray("select")
	selectionsFile, _ := cmd.Flags().GetString("selections")

	opts := segmentation.ExtractOptions{MinimalExtent: cfg.Extract.MinimalExtent}
	if cmd.Flags().Changed("minimal-extent") {
		opts.MinimalExtent, _ = cmd.Flags().GetBool("minimal-extent")
	}

	var selections []segmentation.Selection
	if selectionsFile != "" {
		loaded, err := config.LoadSelections(selectionsFile)
		if err != nil {
			return err
		}
		selections = append(selections, loaded...)
	}
	for _, spec := range specs {
		sel, err := parseSelection(spec)
		if err != nil {
			return err
		}
		selections = append(selections, sel)
	}
	if len(selections) == 0 {
		return fmt.Errorf("no selections given (use --select or --selections)")
	}

	s, err := segmentation.ReadFile(in, segmentation.ReadOptions{})
	if err != nil {
		return err
	}
	extracted, err := segmentation.Extract(s, selections, opts)
	if err != nil {
		return err
	}
	extracted.Encoding = cfg.Write.Encoding
	if err := segmentation.WriteFile(out, extracted, segmentation.WriteOptions{CompressionLevel: cfg.Write.CompressionLevel}); err != nil {
		return err
	}
	logging.Default().WithFile(out).Info("extraction complete", "selections", len(selections))

	report := models.ExtractReport{
		Input:    in,
		Output:   out,
		Segments: models.NewSummary(out, nil, extracted).Segments,
	}
	if formatFlag == "json" {
		return printJSON(cmd.OutOrStdout(), report)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d segments to %s\n", len(report.Segments), out)
	for _, seg := range report.Segments {
		printSegment(cmd.OutOrStdout(), seg)
	}
	return nil
}

// parseSelection parses NAME=LABEL. The last '=' separates the label, so
// names may contain '='.
func parseSelection(spec string) (segmentation.Selection, error) {
	i := strings.LastIndex(spec, "=")
	if i <= 0 {
		return segmentation.Selection{}, fmt.Errorf("selection %q must be NAME=LABEL", spec)
	}
	label, err := strconv.Atoi(spec[i+1:])
	if err != nil {
		return segmentation.Selection{}, fmt.Errorf("selection %q: invalid label: %w", spec, err)
	}
	return segmentation.Selection{Selector: segmentation.ByName(spec[:i]), LabelValue: label}, nil
}
