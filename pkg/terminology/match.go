package terminology

// Matches reports whether a and b classify the same structure.
//
// Category and type must match by scheme and value. The optional codes must
// be present on both sides or absent on both sides, and match when present.
// The anatomic region modifier is only considered when both entries carry an
// anatomic region.
func Matches(a, b *Entry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Category.Matches(b.Category) || !a.Type.Matches(b.Type) {
		return false
	}
	if !optionalMatches(a.TypeModifier, b.TypeModifier) {
		return false
	}
	if !optionalMatches(a.AnatomicRegion, b.AnatomicRegion) {
		return false
	}
	if a.AnatomicRegion != nil && !optionalMatches(a.AnatomicRegionModifier, b.AnatomicRegionModifier) {
		return false
	}
	return true
}

func optionalMatches(a, b *Code) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return a.Matches(*b)
	}
}
