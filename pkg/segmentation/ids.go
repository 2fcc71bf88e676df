package segmentation

import "strconv"

const idPrefix = "Segment_"

// GenerateUniqueID returns the first ID of the form Segment_<n>, n = 1, 2, ...,
// that is not in existing. The caller adds the result to existing before the
// next call.
func GenerateUniqueID(existing map[string]struct{}) string {
	for n := 1; ; n++ {
		id := idPrefix + strconv.Itoa(n)
		if _, taken := existing[id]; !taken {
			return id
		}
	}
}

// idRegistry hands out segment IDs that are unique within one segmentation.
// Reserved IDs are never generated, but can still be claimed once by name.
type idRegistry struct {
	taken    map[string]struct{}
	assigned map[string]struct{}
}

func newIDRegistry(reserved ...string) *idRegistry {
	r := &idRegistry{taken: make(map[string]struct{}), assigned: make(map[string]struct{})}
	for _, id := range reserved {
		if id != "" {
			r.taken[id] = struct{}{}
		}
	}
	return r
}

// claim returns id when it is non-empty and not yet assigned, and a generated
// ID otherwise. generated reports which case applied.
func (r *idRegistry) claim(id string) (_ string, generated bool) {
	if _, dup := r.assigned[id]; id == "" || dup {
		id = GenerateUniqueID(r.taken)
		generated = true
	}
	r.taken[id] = struct{}{}
	r.assigned[id] = struct{}{}
	return id, generated
}
