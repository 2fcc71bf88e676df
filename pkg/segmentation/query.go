package segmentation

import (
	"slicerio/pkg/segerr"
	"slicerio/pkg/terminology"
)

// SegmentByName returns the first segment named name.
func (s *Segmentation) SegmentByName(name string) (*Segment, error) {
	for i := range s.Segments {
		if hasName(&s.Segments[i], name) {
			return &s.Segments[i], nil
		}
	}
	return nil, &segerr.NotFoundError{Selector: "name " + name}
}

// SegmentsByName returns every segment named name, in segment order.
func (s *Segmentation) SegmentsByName(name string) []*Segment {
	var found []*Segment
	for i := range s.Segments {
		if hasName(&s.Segments[i], name) {
			found = append(found, &s.Segments[i])
		}
	}
	return found
}

// SegmentsByTerminology returns every segment whose terminology matches
// query, in segment order. See terminology.Matches for the rules.
func (s *Segmentation) SegmentsByTerminology(query *terminology.Entry) []*Segment {
	var found []*Segment
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.Terminology != nil && terminology.Matches(seg.Terminology, query) {
			found = append(found, seg)
		}
	}
	return found
}

// SegmentByID returns the segment with the given ID.
func (s *Segmentation) SegmentByID(id string) (*Segment, error) {
	for i := range s.Segments {
		if s.Segments[i].ID == id {
			return &s.Segments[i], nil
		}
	}
	return nil, &segerr.NotFoundError{Selector: "id " + id}
}

// SegmentIDByName returns the ID of the first segment named name.
func (s *Segmentation) SegmentIDByName(name string) (string, error) {
	seg, err := s.SegmentByName(name)
	if err != nil {
		return "", err
	}
	return seg.ID, nil
}

// SegmentNames returns the names of all named segments, in segment order.
func (s *Segmentation) SegmentNames() []string {
	names := make([]string, 0, len(s.Segments))
	for _, seg := range s.Segments {
		if seg.Name != nil {
			names = append(names, *seg.Name)
		}
	}
	return names
}

func hasName(seg *Segment, name string) bool {
	return seg.Name != nil && *seg.Name == name
}
