// Package segmentation models labelled volume annotations stored in NRRD
// segmentation files (.seg.nrrd), and translates them to and from the flat
// NRRD header.
//
// A Segmentation holds a shared voxel grid and a list of segments. Each
// segment is identified by a label value, and by a layer when the voxel array
// has a fourth dimension holding overlapping layers.
package segmentation

import (
	"maps"
	"slices"

	"slicerio/pkg/geometry"
	"slicerio/pkg/nrrd"
	"slicerio/pkg/terminology"
	"slicerio/pkg/volume"
)

// Extent is an inclusive voxel bounding box [iMin, iMax, jMin, jMax, kMin, kMax].
// An extent with any min greater than its max is invalid, meaning empty or
// unknown.
type Extent [6]int

// InvalidExtent returns the sentinel extent with min > max on every axis.
func InvalidExtent() Extent {
	return Extent{0, -1, 0, -1, 0, -1}
}

// FullExtent returns the extent covering a grid of the given sizes.
func FullExtent(grid [3]int) Extent {
	return Extent{0, grid[0] - 1, 0, grid[1] - 1, 0, grid[2] - 1}
}

// Valid reports whether every axis has min <= max.
func (e Extent) Valid() bool {
	return e[0] <= e[1] && e[2] <= e[3] && e[4] <= e[5]
}

// Union returns the smallest extent containing e and o. Invalid extents are
// ignored; the union of two invalid extents is invalid.
func (e Extent) Union(o Extent) Extent {
	switch {
	case !o.Valid():
		return e
	case !e.Valid():
		return o
	}
	u := e
	for axis := 0; axis < 3; axis++ {
		u[2*axis] = min(u[2*axis], o[2*axis])
		u[2*axis+1] = max(u[2*axis+1], o[2*axis+1])
	}
	return u
}

// Color is an RGB color with components in [0, 1].
type Color [3]float64

// ConversionParameter configures conversion between representations.
type ConversionParameter struct {
	Name        string `json:"name" yaml:"name"`
	Value       string `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// Segment is one named region of a Segmentation. Pointer fields are nil when
// the value is absent from the file.
type Segment struct {
	// ID is unique within the segmentation.
	ID string

	Name              *string
	NameAutoGenerated *bool

	Color              *Color
	ColorAutoGenerated *bool

	// LabelValue is the voxel value marking this segment.
	LabelValue *int

	// Layer indexes the first array axis of a layered volume.
	Layer *int

	Extent *Extent

	Terminology *terminology.Entry

	// Status is the editing status, such as "inprogress" or "completed".
	Status *string

	// Tags holds free-form tags that have no dedicated field. Nil when the
	// segment has none.
	Tags map[string]string

	// Extra holds unrecognized per-segment header fields, keyed by the field
	// name without the "Segment<i>_" prefix.
	Extra []nrrd.Field
}

// Clone returns a deep copy of s.
func (s *Segment) Clone() *Segment {
	c := *s
	c.Name = clonePtr(s.Name)
	c.NameAutoGenerated = clonePtr(s.NameAutoGenerated)
	c.Color = clonePtr(s.Color)
	c.ColorAutoGenerated = clonePtr(s.ColorAutoGenerated)
	c.LabelValue = clonePtr(s.LabelValue)
	c.Layer = clonePtr(s.Layer)
	c.Extent = clonePtr(s.Extent)
	c.Terminology = s.Terminology.Clone()
	c.Status = clonePtr(s.Status)
	if s.Tags != nil {
		c.Tags = maps.Clone(s.Tags)
	}
	c.Extra = slices.Clone(s.Extra)
	return &c
}

// Segmentation is a set of segments over a shared voxel grid.
type Segmentation struct {
	// Voxels is nil when the file was read without its payload.
	Voxels *volume.Volume

	// IJKToLPS maps voxel indices to physical LPS coordinates.
	IJKToLPS geometry.Transform

	// Encoding is the payload encoding; empty means the writer default.
	Encoding string

	ContainedRepresentationNames []string
	ConversionParameters         []ConversionParameter

	// MasterRepresentation is empty when absent.
	MasterRepresentation string

	ReferenceImageExtentOffset *[3]int

	Segments []Segment

	// Fields holds unrecognized header fields, passed through unchanged.
	Fields []nrrd.Field
}

// New returns an empty segmentation over vol with identity geometry.
func New(vol *volume.Volume) *Segmentation {
	return &Segmentation{Voxels: vol, IJKToLPS: geometry.Identity()}
}

// Clone returns a deep copy of s, including voxels.
func (s *Segmentation) Clone() *Segmentation {
	c := s.cloneMetadata()
	c.Voxels = s.Voxels.Clone()
	c.Segments = make([]Segment, len(s.Segments))
	for i := range s.Segments {
		c.Segments[i] = *s.Segments[i].Clone()
	}
	return c
}

// cloneMetadata copies every top-level field except voxels and segments.
func (s *Segmentation) cloneMetadata() *Segmentation {
	return &Segmentation{
		IJKToLPS:                     s.IJKToLPS,
		Encoding:                     s.Encoding,
		ContainedRepresentationNames: slices.Clone(s.ContainedRepresentationNames),
		ConversionParameters:         slices.Clone(s.ConversionParameters),
		MasterRepresentation:         s.MasterRepresentation,
		ReferenceImageExtentOffset:   clonePtr(s.ReferenceImageExtentOffset),
		Fields:                       slices.Clone(s.Fields),
	}
}

// Ptr returns a pointer to v, for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
