package segmentation

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"slicerio/pkg/geometry"
	"slicerio/pkg/logging"
	"slicerio/pkg/nrrd"
	"slicerio/pkg/segerr"
	"slicerio/pkg/volume"
)

// droppedKeys describe the voxel array itself and are not kept as metadata.
var droppedKeys = map[string]bool{"type": true, "endian": true, "dimension": true, "sizes": true}

var (
	kindsSingleLayer = []string{"domain", "domain", "domain"}
	kindsLayered     = []string{"list", "domain", "domain", "domain"}
)

var segmentKeyPattern = regexp.MustCompile(`^Segment([0-9]+)_(.+)$`)

// rawSegment holds the per-segment fields found for one index.
type rawSegment struct {
	fields []nrrd.Field
}

// Decode builds a Segmentation from a flat header and its voxels. vol may be
// nil when only the header was read.
func Decode(h *nrrd.Header, vol *volume.Volume) (*Segmentation, error) {
	if vol != nil {
		if err := vol.Validate(); err != nil {
			return nil, err
		}
	}

	s := &Segmentation{Voxels: vol}

	space := geometry.SpaceLPS
	var directions [][]float64
	var origin []float64
	raw := map[int]*rawSegment{}

	for _, f := range h.Fields() {
		if droppedKeys[f.Key] {
			continue
		}

		switch f.Key {
		case "space":
			v, ok := f.Value.(string)
			if !ok {
				return nil, segerr.Formatf(f.Key, "unexpected value type %T", f.Value)
			}
			space = v
			continue
		case "kinds":
			if err := checkKinds(f.Value, vol); err != nil {
				return nil, err
			}
			continue
		case "space origin":
			v, ok := f.Value.([]float64)
			if !ok {
				return nil, segerr.Formatf(f.Key, "unexpected value type %T", f.Value)
			}
			origin = v
			continue
		case "space directions":
			v, ok := f.Value.([][]float64)
			if !ok {
				return nil, segerr.Formatf(f.Key, "unexpected value type %T", f.Value)
			}
			directions = v
			continue
		}

		if field := findTopLevelField(f.Key); field != nil {
			value, ok := f.Value.(string)
			if !ok {
				return nil, segerr.Formatf(f.Key, "unexpected value type %T", f.Value)
			}
			if err := field.decode(s, value); err != nil {
				return nil, err
			}
			continue
		}

		if m := segmentKeyPattern.FindStringSubmatch(f.Key); m != nil {
			index, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, &segerr.FormatError{Field: f.Key, Msg: "invalid segment index", Err: err}
			}
			if raw[index] == nil {
				raw[index] = &rawSegment{}
			}
			raw[index].fields = append(raw[index].fields, nrrd.Field{Key: m[2], Value: f.Value})
			continue
		}

		s.Fields = append(s.Fields, f)
	}

	transform, err := geometry.Build(space, directions, origin)
	if err != nil {
		return nil, err
	}
	s.IJKToLPS = transform

	segments, err := decodeSegments(raw)
	if err != nil {
		return nil, err
	}
	s.Segments = segments
	return s, nil
}

func checkKinds(value any, vol *volume.Volume) error {
	kinds, ok := value.([]string)
	if !ok {
		return segerr.Formatf("kinds", "unexpected value type %T", value)
	}
	var layered bool
	switch {
	case slices.Equal(kinds, kindsSingleLayer):
	case slices.Equal(kinds, kindsLayered):
		layered = true
	default:
		return segerr.Formatf("kinds", "must be 'domain domain domain' or 'list domain domain domain', got %q", kinds)
	}
	if vol != nil && vol.Layered() != layered {
		return segerr.Formatf("kinds", "%q does not match a %d-dimensional array", kinds, vol.Dims())
	}
	return nil
}

// decodeSegments converts grouped fields to segments in ascending index order
// and fills in missing IDs.
func decodeSegments(raw map[int]*rawSegment) ([]Segment, error) {
	indices := make([]int, 0, len(raw))
	var explicit []string
	for index, rs := range raw {
		indices = append(indices, index)
		for _, f := range rs.fields {
			if f.Key == "ID" {
				if id, ok := f.Value.(string); ok {
					explicit = append(explicit, id)
				}
			}
		}
	}
	slices.Sort(indices)

	ids := newIDRegistry(explicit...)
	segments := make([]Segment, 0, len(indices))
	for _, index := range indices {
		var seg Segment
		for _, f := range raw[index].fields {
			key := segmentKey(index, f.Key)
			value, ok := f.Value.(string)
			if !ok {
				return nil, segerr.Formatf(key, "unexpected value type %T", f.Value)
			}
			field := findSegmentField(f.Key)
			if field == nil {
				seg.Extra = append(seg.Extra, nrrd.Field{Key: f.Key, Value: value})
				continue
			}
			if err := field.decode(&seg, value); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}

		id, generated := ids.claim(seg.ID)
		if generated {
			logging.Default().WithSegment(index, id).Debug("segment ID missing or duplicated, generated a new one", "original", seg.ID)
		}
		seg.ID = id
		segments = append(segments, seg)
	}
	return segments, nil
}

// Encode flattens s into a header for writing with its voxels. Missing
// segment IDs, layers and extents are filled in on the output only; s is not
// modified.
func (s *Segmentation) Encode() (*nrrd.Header, error) {
	vol := s.Voxels
	if vol == nil {
		return nil, segerr.Valuef("segmentation does not contain voxels")
	}
	if err := vol.Validate(); err != nil {
		return nil, err
	}
	if s.IJKToLPS[3] != [4]float64{0, 0, 0, 1} {
		return nil, segerr.Valuef("ijkToLPS is not an affine transform: bottom row %v", s.IJKToLPS[3])
	}

	h := &nrrd.Header{}
	for _, f := range s.Fields {
		if !droppedKeys[f.Key] {
			h.Set(f.Key, f.Value)
		}
	}

	h.Set(keyEncoding, cmp.Or(s.Encoding, DefaultEncoding))

	kinds := kindsSingleLayer
	if vol.Layered() {
		kinds = kindsLayered
	}
	directions, origin := geometry.Decompose(s.IJKToLPS, vol.Layered())
	h.Set("space", geometry.SpaceLPS)
	h.Set("kinds", slices.Clone(kinds))
	h.Set("space directions", directions)
	h.Set("space origin", origin)

	if err := s.encodeSegments(h); err != nil {
		return nil, err
	}

	for _, field := range topLevelFields {
		if field.key == keyEncoding {
			continue
		}
		value, ok, err := field.encode(s)
		if err != nil {
			return nil, err
		}
		if ok {
			h.Set(field.key, value)
		}
	}
	return h, nil
}

func (s *Segmentation) encodeSegments(h *nrrd.Header) error {
	reserved := make([]string, 0, len(s.Segments))
	for _, seg := range s.Segments {
		reserved = append(reserved, seg.ID)
	}
	ids := newIDRegistry(reserved...)
	full := FullExtent(s.Voxels.Grid())

	for index := range s.Segments {
		seg := s.Segments[index]

		id, generated := ids.claim(seg.ID)
		if generated {
			logging.Default().WithSegment(index, id).Debug("segment ID missing or duplicated, generated a new one", "original", seg.ID)
		}
		seg.ID = id
		if seg.Layer == nil {
			seg.Layer = Ptr(0)
		}
		if seg.Extent == nil {
			seg.Extent = &full
		}

		for _, field := range segmentFields {
			value, ok, err := field.encode(&seg)
			if err != nil {
				return fmt.Errorf("encode segment %q: %w", seg.ID, err)
			}
			if ok {
				h.Set(segmentKey(index, field.name), value)
			}
		}
		for _, f := range seg.Extra {
			if findSegmentField(f.Key) != nil {
				continue
			}
			h.Set(segmentKey(index, f.Key), f.Value)
		}
	}
	return nil
}
