// Package models defines the report records printed by the slicerio CLI.
package models

import (
	"slicerio/pkg/nrrd"
	"slicerio/pkg/segmentation"
	"slicerio/pkg/statistics"
	"slicerio/pkg/terminology"
)

// SegmentSummary describes one segment of a segmentation file.
type SegmentSummary struct {
	Index       int                  `json:"index"`
	ID          string               `json:"id"`
	Name        string               `json:"name,omitempty"`
	LabelValue  *int                 `json:"label_value,omitempty"`
	Layer       *int                 `json:"layer,omitempty"`
	Color       *segmentation.Color  `json:"color,omitempty"`
	Extent      *segmentation.Extent `json:"extent,omitempty"`
	Status      string               `json:"status,omitempty"`
	Terminology string               `json:"terminology,omitempty"`
	Tags        map[string]string    `json:"tags,omitempty"`
}

// Summary describes a segmentation file without its voxels.
type Summary struct {
	File                         string                             `json:"file"`
	Type                         string                             `json:"type,omitempty"`
	Sizes                        []int                              `json:"sizes,omitempty"`
	Layered                      bool                               `json:"layered"`
	Spacing                      [3]float64                         `json:"spacing"`
	Origin                       [3]float64                         `json:"origin"`
	IJKToLPS                     [4][4]float64                      `json:"ijk_to_lps"`
	MasterRepresentation         string                             `json:"master_representation,omitempty"`
	ContainedRepresentationNames []string                           `json:"contained_representation_names,omitempty"`
	ConversionParameters         []segmentation.ConversionParameter `json:"conversion_parameters,omitempty"`
	Segments                     []SegmentSummary                   `json:"segments"`
}

// NewSummary builds the summary of file from a decoded segmentation. The
// voxel type and sizes come from the voxels when present and from h
// otherwise; h may be nil.
func NewSummary(file string, h *nrrd.Header, s *segmentation.Segmentation) *Summary {
	sum := &Summary{
		File:                         file,
		Spacing:                      s.IJKToLPS.Spacing(),
		Origin:                       [3]float64{s.IJKToLPS[0][3], s.IJKToLPS[1][3], s.IJKToLPS[2][3]},
		IJKToLPS:                     s.IJKToLPS,
		MasterRepresentation:         s.MasterRepresentation,
		ContainedRepresentationNames: s.ContainedRepresentationNames,
		ConversionParameters:         s.ConversionParameters,
		Segments:                     make([]SegmentSummary, 0, len(s.Segments)),
	}
	switch {
	case s.Voxels != nil:
		sum.Type = string(s.Voxels.Type)
		sum.Sizes = s.Voxels.Sizes
	case h != nil:
		sum.Type, _ = h.GetString("type")
		if v, ok := h.Get("sizes"); ok {
			sum.Sizes, _ = v.([]int)
		}
	}
	sum.Layered = len(sum.Sizes) == 4

	for i, seg := range s.Segments {
		ss := SegmentSummary{
			Index:      i,
			ID:         seg.ID,
			LabelValue: seg.LabelValue,
			Layer:      seg.Layer,
			Color:      seg.Color,
			Extent:     seg.Extent,
			Tags:       seg.Tags,
		}
		if seg.Name != nil {
			ss.Name = *seg.Name
		}
		if seg.Status != nil {
			ss.Status = *seg.Status
		}
		if seg.Terminology != nil {
			ss.Terminology = terminology.Encode(seg.Terminology)
		}
		sum.Segments = append(sum.Segments, ss)
	}
	return sum
}

// StatsReport lists the measurements of every labelled segment of a file.
type StatsReport struct {
	File     string                    `json:"file"`
	Segments []statistics.SegmentStats `json:"segments"`
}

// ExtractReport describes a completed extraction.
type ExtractReport struct {
	Input    string           `json:"input"`
	Output   string           `json:"output"`
	Segments []SegmentSummary `json:"segments"`
}
