package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGenerateUniqueID verifies the first free Segment_<n> is returned
func TestGenerateUniqueID(t *testing.T) {
	existing := map[string]struct{}{}
	assert.Equal(t, "Segment_1", GenerateUniqueID(existing))

	existing["Segment_1"] = struct{}{}
	existing["Segment_3"] = struct{}{}
	assert.Equal(t, "Segment_2", GenerateUniqueID(existing))

	existing["Segment_2"] = struct{}{}
	assert.Equal(t, "Segment_4", GenerateUniqueID(existing))
	assert.Len(t, existing, 3, "generation does not modify the set")
}

// TestIDRegistryClaim verifies reserved, duplicate and missing IDs
func TestIDRegistryClaim(t *testing.T) {
	r := newIDRegistry("Segment_1", "liver", "")

	id, generated := r.claim("")
	assert.Equal(t, "Segment_2", id, "reserved IDs are skipped")
	assert.True(t, generated)

	id, generated = r.claim("Segment_1")
	assert.Equal(t, "Segment_1", id)
	assert.False(t, generated)

	id, generated = r.claim("Segment_1")
	assert.Equal(t, "Segment_3", id)
	assert.True(t, generated)

	id, _ = r.claim("liver")
	assert.Equal(t, "liver", id)
}
