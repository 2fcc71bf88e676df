package segmentation

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"slicerio/pkg/logging"
	"slicerio/pkg/segerr"
	"slicerio/pkg/terminology"
)

// Header keys of the top-level segmentation fields.
const (
	keyEncoding                     = "encoding"
	keyContainedRepresentationNames = "Segmentation_ContainedRepresentationNames"
	keyConversionParameters         = "Segmentation_ConversionParameters"
	keyMasterRepresentation         = "Segmentation_MasterRepresentation"
	keyReferenceImageExtentOffset   = "Segmentation_ReferenceImageExtentOffset"
)

// Defaults written for absent top-level fields.
const (
	DefaultEncoding             = "gzip"
	DefaultMasterRepresentation = "Binary labelmap"
)

// Tag keys with dedicated segment fields.
const (
	tagTerminology = "TerminologyEntry"
	tagStatus      = "Segmentation.Status"
)

// topLevelField maps one header key to a Segmentation field.
type topLevelField struct {
	key    string
	decode func(s *Segmentation, value string) error

	// encode returns the header value; ok is false to omit the key.
	encode func(s *Segmentation) (value string, ok bool, err error)
}

var topLevelFields = []topLevelField{
	{
		key: keyEncoding,
		decode: func(s *Segmentation, value string) error {
			s.Encoding = value
			return nil
		},
		encode: func(s *Segmentation) (string, bool, error) {
			return cmp.Or(s.Encoding, DefaultEncoding), true, nil
		},
	},
	{
		// Binary labelmap|Closed surface|
		key: keyContainedRepresentationNames,
		decode: func(s *Segmentation, value string) error {
			names := []string{}
			for _, name := range strings.Split(value, "|") {
				if name != "" {
					names = append(names, name)
				}
			}
			s.ContainedRepresentationNames = names
			return nil
		},
		encode: func(s *Segmentation) (string, bool, error) {
			if s.ContainedRepresentationNames == nil {
				return "", false, nil
			}
			// Older readers require the closing separator.
			return strings.Join(s.ContainedRepresentationNames, "|") + "|", true, nil
		},
	},
	{
		// Collapse labelmaps|1|Merge the labelmaps...&Compute surface normals|1|...&
		key: keyConversionParameters,
		decode: func(s *Segmentation, value string) error {
			var params []ConversionParameter
			records := strings.Split(value, "&")
			for n, record := range records {
				if strings.TrimSpace(record) == "" {
					// The closing separator leaves one empty record at the end.
					if n < len(records)-1 {
						logging.Default().Debug("skipped empty conversion parameter", "position", n)
					}
					continue
				}
				parts := strings.Split(record, "|")
				if len(parts) != 3 {
					return segerr.Formatf(keyConversionParameters, "each parameter must be defined by 3 strings, got %d in %q", len(parts), record)
				}
				params = append(params, ConversionParameter{Name: parts[0], Value: parts[1], Description: parts[2]})
			}
			s.ConversionParameters = params
			return nil
		},
		encode: func(s *Segmentation) (string, bool, error) {
			if s.ConversionParameters == nil {
				return "", false, nil
			}
			records := make([]string, len(s.ConversionParameters))
			for i, p := range s.ConversionParameters {
				for _, part := range []string{p.Name, p.Value, p.Description} {
					if strings.ContainsAny(part, "|&") {
						return "", false, segerr.Formatf(keyConversionParameters, "parameter %q must not contain '|' or '&'", p.Name)
					}
				}
				records[i] = p.Name + "|" + p.Value + "|" + p.Description
			}
			return strings.Join(records, "&"), true, nil
		},
	},
	{
		key: keyMasterRepresentation,
		decode: func(s *Segmentation, value string) error {
			s.MasterRepresentation = value
			return nil
		},
		encode: func(s *Segmentation) (string, bool, error) {
			return cmp.Or(s.MasterRepresentation, DefaultMasterRepresentation), true, nil
		},
	},
	{
		// 0 0 0
		key: keyReferenceImageExtentOffset,
		decode: func(s *Segmentation, value string) error {
			ints, err := parseInts(keyReferenceImageExtentOffset, value, 3)
			if err != nil {
				return err
			}
			s.ReferenceImageExtentOffset = &[3]int{ints[0], ints[1], ints[2]}
			return nil
		},
		encode: func(s *Segmentation) (string, bool, error) {
			offset := [3]int{}
			if s.ReferenceImageExtentOffset != nil {
				offset = *s.ReferenceImageExtentOffset
			}
			return joinInts(offset[:]), true, nil
		},
	},
}

func findTopLevelField(key string) *topLevelField {
	for i := range topLevelFields {
		if topLevelFields[i].key == key {
			return &topLevelFields[i]
		}
	}
	return nil
}

// segmentField maps one Segment<i>_<name> header field to a Segment field.
type segmentField struct {
	name   string
	decode func(seg *Segment, value string) error

	// encode returns the header value; ok is false to omit the field.
	encode func(seg *Segment) (value string, ok bool, err error)
}

// segmentFields are listed in the order they are written.
var segmentFields = []segmentField{
	{
		// 0.501961 0.682353 0.501961
		name: "Color",
		decode: func(seg *Segment, value string) error {
			floats, err := parseFloats("Color", value, 3)
			if err != nil {
				return err
			}
			seg.Color = &Color{floats[0], floats[1], floats[2]}
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			if seg.Color == nil {
				return "", false, nil
			}
			return joinFloats(seg.Color[:]), true, nil
		},
	},
	{
		name: "ColorAutoGenerated",
		decode: func(seg *Segment, value string) error {
			seg.ColorAutoGenerated = Ptr(value == "1")
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			return encodeFlag(seg.ColorAutoGenerated)
		},
	},
	{
		// 68 203 53 211 24 118
		name: "Extent",
		decode: func(seg *Segment, value string) error {
			ints, err := parseInts("Extent", value, 6)
			if err != nil {
				return err
			}
			var e Extent
			copy(e[:], ints)
			seg.Extent = &e
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			if seg.Extent == nil {
				return "", false, nil
			}
			return joinInts(seg.Extent[:]), true, nil
		},
	},
	{
		name: "ID",
		decode: func(seg *Segment, value string) error {
			seg.ID = value
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			return seg.ID, true, nil
		},
	},
	{
		name: "LabelValue",
		decode: func(seg *Segment, value string) error {
			n, err := parseInt("LabelValue", value)
			if err != nil {
				return err
			}
			seg.LabelValue = &n
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			return encodeInt(seg.LabelValue)
		},
	},
	{
		name: "Layer",
		decode: func(seg *Segment, value string) error {
			n, err := parseInt("Layer", value)
			if err != nil {
				return err
			}
			if n < 0 {
				return segerr.Formatf("Layer", "must not be negative, got %d", n)
			}
			seg.Layer = &n
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			if seg.Layer != nil && *seg.Layer < 0 {
				return "", false, segerr.Formatf("Layer", "must not be negative, got %d", *seg.Layer)
			}
			return encodeInt(seg.Layer)
		},
	},
	{
		name: "Name",
		decode: func(seg *Segment, value string) error {
			seg.Name = &value
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			if seg.Name == nil {
				return "", false, nil
			}
			return *seg.Name, true, nil
		},
	},
	{
		name: "NameAutoGenerated",
		decode: func(seg *Segment, value string) error {
			seg.NameAutoGenerated = Ptr(value == "1")
			return nil
		},
		encode: func(seg *Segment) (string, bool, error) {
			return encodeFlag(seg.NameAutoGenerated)
		},
	},
	{
		// Segmentation.Status:inprogress|TerminologyEntry:...~...|
		name:   "Tags",
		decode: decodeTags,
		encode: encodeTags,
	},
}

func findSegmentField(name string) *segmentField {
	for i := range segmentFields {
		if segmentFields[i].name == name {
			return &segmentFields[i]
		}
	}
	return nil
}

func decodeTags(seg *Segment, value string) error {
	for _, token := range strings.Split(value, "|") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		key, val, ok := strings.Cut(token, ":")
		if !ok {
			return segerr.Formatf("Tags", "tag %q is not a key:value pair", token)
		}
		switch key {
		case tagTerminology:
			entry, err := terminology.Decode(val)
			if err != nil {
				return err
			}
			seg.Terminology = entry
		case tagStatus:
			seg.Status = Ptr(val)
		default:
			if seg.Tags == nil {
				seg.Tags = make(map[string]string)
			}
			seg.Tags[key] = val
		}
	}
	return nil
}

// encodeTags merges terminology, status and free-form tags, sorted by key.
// Each tag is terminated by '|', which older readers require.
func encodeTags(seg *Segment) (string, bool, error) {
	tags := make(map[string]string, len(seg.Tags)+2)
	for k, v := range seg.Tags {
		if k == tagTerminology || k == tagStatus {
			return "", false, segerr.Formatf("Tags", "tag key %q is reserved", k)
		}
		if k == "" || strings.ContainsAny(k, ":|") {
			return "", false, segerr.Formatf("Tags", "invalid tag key %q", k)
		}
		tags[k] = v
	}
	if seg.Terminology != nil {
		if err := seg.Terminology.Validate(); err != nil {
			return "", false, err
		}
		tags[tagTerminology] = terminology.Encode(seg.Terminology)
	}
	if seg.Status != nil {
		tags[tagStatus] = *seg.Status
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		if strings.Contains(tags[k], "|") {
			return "", false, segerr.Formatf("Tags", "value of tag %q must not contain '|'", k)
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(tags[k])
		b.WriteByte('|')
	}
	if b.Len() == 0 {
		return "|", true, nil
	}
	return b.String(), true, nil
}

func encodeFlag(p *bool) (string, bool, error) {
	if p == nil {
		return "", false, nil
	}
	if *p {
		return "1", true, nil
	}
	return "0", true, nil
}

func encodeInt(p *int) (string, bool, error) {
	if p == nil {
		return "", false, nil
	}
	return strconv.Itoa(*p), true, nil
}

func parseInt(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &segerr.FormatError{Field: field, Msg: fmt.Sprintf("%q is not an integer", value), Err: err}
	}
	return n, nil
}

func parseInts(field, value string, count int) ([]int, error) {
	tokens := strings.Fields(value)
	if len(tokens) != count {
		return nil, segerr.Formatf(field, "expected %d integers, got %q", count, value)
	}
	ints := make([]int, count)
	for i, tok := range tokens {
		n, err := parseInt(field, tok)
		if err != nil {
			return nil, err
		}
		ints[i] = n
	}
	return ints, nil
}

func parseFloats(field, value string, count int) ([]float64, error) {
	tokens := strings.Fields(value)
	if len(tokens) != count {
		return nil, segerr.Formatf(field, "expected %d numbers, got %q", count, value)
	}
	floats := make([]float64, count)
	for i, tok := range tokens {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, &segerr.FormatError{Field: field, Msg: fmt.Sprintf("%q is not a number", tok), Err: err}
		}
		floats[i] = f
	}
	return floats, nil
}

func joinInts(ints []int) string {
	parts := make([]string, len(ints))
	for i, n := range ints {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

func joinFloats(floats []float64) string {
	parts := make([]string, len(floats))
	for i, f := range floats {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// segmentKey returns the header key of a per-segment field.
func segmentKey(index int, name string) string {
	return "Segment" + strconv.Itoa(index) + "_" + name
}
