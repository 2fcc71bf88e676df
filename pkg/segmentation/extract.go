package segmentation

import (
	"fmt"

	"slicerio/pkg/logging"
	"slicerio/pkg/segerr"
	"slicerio/pkg/terminology"
	"slicerio/pkg/volume"
)

// Selector picks segments either by name or by terminology.
type Selector struct {
	// Name selects segments with this name when Terminology is nil.
	Name string

	// Terminology selects segments whose terminology matches.
	Terminology *terminology.Entry
}

// ByName selects segments by name.
func ByName(name string) Selector {
	return Selector{Name: name}
}

// ByTerminology selects segments by terminology.
func ByTerminology(entry *terminology.Entry) Selector {
	return Selector{Terminology: entry}
}

func (sel Selector) String() string {
	if sel.Terminology != nil {
		return "terminology " + terminology.Encode(sel.Terminology)
	}
	return "name " + sel.Name
}

// Resolve returns every segment of s matched by sel.
func (sel Selector) Resolve(s *Segmentation) []*Segment {
	if sel.Terminology != nil {
		return s.SegmentsByTerminology(sel.Terminology)
	}
	return s.SegmentsByName(sel.Name)
}

// Selection maps the segments picked by Selector to one output label value.
type Selection struct {
	Selector   Selector
	LabelValue int
}

// ExtractOptions control Extract.
type ExtractOptions struct {
	// MinimalExtent sets each output extent to the union of the matched
	// segments' extents. When false every output segment gets the full
	// volume extent, which readers that crop all layers to the first
	// segment's extent need.
	MinimalExtent bool
}

// Extract builds a new single-layer segmentation holding one segment per
// selection. All segments matched by a selection are merged and relabelled
// with its label value; where voxels of different selections coincide, the
// later selection wins. s is not modified.
func Extract(s *Segmentation, selections []Selection, opts ExtractOptions) (*Segmentation, error) {
	src := s.Voxels
	if src == nil {
		return nil, segerr.Valuef("segmentation does not contain voxels")
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	grid := src.Grid()
	dst, err := volume.New(src.Type, grid[0], grid[1], grid[2])
	if err != nil {
		return nil, err
	}

	out := s.cloneMetadata()
	out.Voxels = dst
	out.Segments = make([]Segment, 0, len(selections))

	reserved := make([]string, 0, len(s.Segments))
	for _, seg := range s.Segments {
		reserved = append(reserved, seg.ID)
	}
	ids := newIDRegistry(reserved...)
	log := logging.Default()

	for _, selection := range selections {
		matches := selection.Selector.Resolve(s)
		if len(matches) == 0 {
			return nil, &segerr.NotFoundError{Selector: selection.Selector.String()}
		}
		if !dst.FitsType(selection.LabelValue) {
			return nil, segerr.Valuef("label value %d does not fit voxel type %s", selection.LabelValue, dst.Type)
		}

		union := InvalidExtent()
		for _, match := range matches {
			if err := relabel(src, dst, match, int32(selection.LabelValue)); err != nil {
				return nil, err
			}
			if match.Extent != nil {
				union = union.Union(*match.Extent)
			}
		}

		merged := matches[0].Clone()
		merged.LabelValue = Ptr(selection.LabelValue)
		merged.Layer = Ptr(0)
		if opts.MinimalExtent {
			merged.Extent = &union
		} else {
			merged.Extent = Ptr(FullExtent(grid))
		}
		id, generated := ids.claim(merged.ID)
		if generated {
			log.Debug("segment selected more than once, generated a new ID", "selector", selection.Selector.String(), "id", id)
		}
		merged.ID = id
		out.Segments = append(out.Segments, *merged)

		log.Debug("extracted segment", "selector", selection.Selector.String(), "matches", len(matches), "label", selection.LabelValue)
	}
	return out, nil
}

// relabel sets every dst voxel where seg is present in src to label.
func relabel(src, dst *volume.Volume, seg *Segment, label int32) error {
	if seg.LabelValue == nil {
		return segerr.Valuef("segment %q has no label value", seg.ID)
	}
	value := int32(*seg.LabelValue)

	layer := 0
	if src.Layered() && seg.Layer != nil {
		layer = *seg.Layer
	}
	layers := src.Layers()
	if layer < 0 || layer >= layers {
		return segerr.Valuef("segment %q is on layer %d, volume has %s", seg.ID, layer, pluralLayers(layers))
	}

	for v := range dst.Data {
		if src.Data[layer+layers*v] == value {
			dst.Data[v] = label
		}
	}
	return nil
}

func pluralLayers(n int) string {
	if n == 1 {
		return "1 layer"
	}
	return fmt.Sprintf("%d layers", n)
}
