package terminology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicerio/pkg/segerr"
)

const (
	ribTerminology  = "Segmentation category and type - 3D Slicer General Anatomy list~SCT^123037004^Anatomical Structure~SCT^113197003^Rib~^^~Anatomic codes - DICOM master list~^^~^^"
	massTerminology = "Segmentation category and type - 3D Slicer General Anatomy list~SCT^49755003^Morphologically Altered Structure~SCT^4147007^Mass~^^~Anatomic codes - DICOM master list~SCT^23451007^Adrenal gland~SCT^24028007^Right"
)

// TestDecode verifies that required and optional items are decoded
func TestDecode(t *testing.T) {
	e, err := Decode(massTerminology)
	require.NoError(t, err)

	assert.Equal(t, "Segmentation category and type - 3D Slicer General Anatomy list", e.ContextName)
	assert.Equal(t, Code{"SCT", "49755003", "Morphologically Altered Structure"}, e.Category)
	assert.Equal(t, Code{"SCT", "4147007", "Mass"}, e.Type)
	assert.Nil(t, e.TypeModifier)
	assert.Equal(t, "Anatomic codes - DICOM master list", e.AnatomicContextName)
	require.NotNil(t, e.AnatomicRegion)
	assert.Equal(t, Code{"SCT", "23451007", "Adrenal gland"}, *e.AnatomicRegion)
	require.NotNil(t, e.AnatomicRegionModifier)
	assert.Equal(t, Code{"SCT", "24028007", "Right"}, *e.AnatomicRegionModifier)
}

// TestDecodeOmitsEmptyItems verifies that empty optional triples are dropped
func TestDecodeOmitsEmptyItems(t *testing.T) {
	e, err := Decode("ctx~SCT^1^A~SCT^2^B~^^~~^^~SCT^3^C")
	require.NoError(t, err)

	assert.Nil(t, e.TypeModifier)
	assert.Empty(t, e.AnatomicContextName)
	assert.Nil(t, e.AnatomicRegion)
	assert.Nil(t, e.AnatomicRegionModifier, "modifier requires a region")
}

// TestDecodeErrors verifies malformed strings are rejected
func TestDecodeErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"ctx~SCT^1^A~SCT^2^B",
		"ctx~SCT^1~SCT^2^B~^^~~^^~^^",
	} {
		_, err := Decode(text)
		assert.ErrorIs(t, err, segerr.ErrFormat, "input %q", text)
	}
}

// TestRoundTrip verifies that encoding inverts decoding for well-formed strings
func TestRoundTrip(t *testing.T) {
	for _, text := range []string{ribTerminology, massTerminology, "~^^~^^~^^~~^^~^^"} {
		e, err := Decode(text)
		require.NoError(t, err)
		assert.Equal(t, text, Encode(e))
	}

	e := &Entry{
		Category: Code{"SCT", "85756007", "Tissue"},
		Type:     Code{"SCT", "85756007", "Tissue"},
	}
	decoded, err := Decode(Encode(e))
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

// TestValidate verifies the region modifier invariant
func TestValidate(t *testing.T) {
	e := &Entry{AnatomicRegionModifier: &Code{"SCT", "24028007", "Right"}}
	assert.ErrorIs(t, e.Validate(), segerr.ErrFormat)

	e.AnatomicRegion = &Code{"SCT", "23451007", "Adrenal gland"}
	assert.NoError(t, e.Validate())
}

// TestClone verifies that clones do not share optional codes
func TestClone(t *testing.T) {
	e, err := Decode(massTerminology)
	require.NoError(t, err)

	c := e.Clone()
	c.AnatomicRegion.CodeValue = "0"
	assert.Equal(t, "23451007", e.AnatomicRegion.CodeValue)
	assert.Nil(t, (*Entry)(nil).Clone())
}

// TestMatches verifies the matching rules for required and optional codes
func TestMatches(t *testing.T) {
	base := func() *Entry {
		return &Entry{
			Category: Code{"SCT", "123037004", "Anatomical Structure"},
			Type:     Code{"SCT", "113197003", "Rib"},
		}
	}

	t.Run("meaning ignored", func(t *testing.T) {
		a, b := base(), base()
		b.Type.CodeMeaning = "rib bone"
		b.ContextName = "other context"
		assert.True(t, Matches(a, b))
	})

	t.Run("type value differs", func(t *testing.T) {
		a, b := base(), base()
		b.Type.CodeValue = "0"
		assert.False(t, Matches(a, b))
	})

	t.Run("type modifier asymmetric", func(t *testing.T) {
		a, b := base(), base()
		a.TypeModifier = &Code{"SCT", "7771000", "Left"}
		assert.False(t, Matches(a, b))
		assert.False(t, Matches(b, a))
		b.TypeModifier = &Code{"SCT", "7771000", "left side"}
		assert.True(t, Matches(a, b))
	})

	t.Run("anatomic region asymmetric", func(t *testing.T) {
		a, b := base(), base()
		a.AnatomicRegion = &Code{"SCT", "23451007", "Adrenal gland"}
		assert.False(t, Matches(a, b))
		assert.False(t, Matches(b, a))
	})

	t.Run("region modifier compares full code", func(t *testing.T) {
		a, b := base(), base()
		a.AnatomicRegion = &Code{"SCT", "23451007", "Adrenal gland"}
		b.AnatomicRegion = &Code{"SCT", "23451007", "Adrenal gland"}
		a.AnatomicRegionModifier = &Code{"SCT", "24028007", "Right"}
		assert.False(t, Matches(a, b))
		b.AnatomicRegionModifier = &Code{"SCT", "7771000", "Left"}
		assert.False(t, Matches(a, b))
		b.AnatomicRegionModifier = &Code{"SCT", "24028007", "Right"}
		assert.True(t, Matches(a, b))
	})

	t.Run("nil entries", func(t *testing.T) {
		assert.False(t, Matches(nil, base()))
	})
}
