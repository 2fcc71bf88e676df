package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"slicerio/internal/models"
	"slicerio/pkg/nrrd"
	"slicerio/pkg/segmentation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Show segmentation metadata without reading voxels",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}

	RootCmd.AddCommand(cmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	h, err := nrrd.ReadHeaderFile(path)
	if err != nil {
		return err
	}
	s, err := segmentation.Decode(h, nil)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	summary := models.NewSummary(path, h, s)
	if formatFlag == "json" {
		return printJSON(cmd.OutOrStdout(), summary)
	}
	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

func printSummary(w io.Writer, sum *models.Summary) {
	fmt.Fprintf(w, "File: %s\n", sum.File)
	fmt.Fprintf(w, "Voxels: %s %v\n", sum.Type, sum.Sizes)
	fmt.Fprintf(w, "Spacing: %.4g %.4g %.4g\n", sum.Spacing[0], sum.Spacing[1], sum.Spacing[2])
	fmt.Fprintf(w, "Origin (LPS): %.4f %.4f %.4f\n", sum.Origin[0], sum.Origin[1], sum.Origin[2])
	if sum.MasterRepresentation != "" {
		fmt.Fprintf(w, "Master representation: %s\n", sum.MasterRepresentation)
	}
	if len(sum.ContainedRepresentationNames) > 0 {
		fmt.Fprintf(w, "Contained representations: %s\n", strings.Join(sum.ContainedRepresentationNames, ", "))
	}
	fmt.Fprintf(w, "Segments: %d\n", len(sum.Segments))
	for _, seg := range sum.Segments {
		printSegment(w, seg)
	}
}

func printSegment(w io.Writer, seg models.SegmentSummary) {
	fmt.Fprintf(w, "  [%d] %s", seg.Index, seg.ID)
	if seg.Name != "" {
		fmt.Fprintf(w, " %q", seg.Name)
	}
	if seg.LabelValue != nil {
		fmt.Fprintf(w, " label=%d", *seg.LabelValue)
	}
	if seg.Layer != nil {
		fmt.Fprintf(w, " layer=%d", *seg.Layer)
	}
	if seg.Extent != nil {
		fmt.Fprintf(w, " extent=%v", *seg.Extent)
	}
	if seg.Status != "" {
		fmt.Fprintf(w, " status=%s", seg.Status)
	}
	fmt.Fprintln(w)
	if seg.Terminology != "" {
		fmt.Fprintf(w, "      terminology: %s\n", seg.Terminology)
	}
}
