package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slicerio/pkg/segerr"
	"slicerio/pkg/volume"
)

// labelSegmentation holds three segments on a 3x1x1 grid, one voxel each.
func labelSegmentation(t *testing.T) *Segmentation {
	t.Helper()
	vol, err := volume.New(volume.Uint8, 3, 1, 1)
	require.NoError(t, err)
	copy(vol.Data, []int32{1, 2, 3})

	s := New(vol)
	s.MasterRepresentation = "Binary labelmap"
	s.Segments = []Segment{
		{ID: "Segment_1", Name: Ptr("ribs"), LabelValue: Ptr(1), Color: &Color{1, 0, 0}, Terminology: ribTerminology()},
		{ID: "Segment_2", Name: Ptr("spine"), LabelValue: Ptr(2), Status: Ptr("completed")},
		{ID: "Segment_3", Name: Ptr("liver"), LabelValue: Ptr(3)},
	}
	return s
}

// layeredSegmentation holds two overlapping segments on separate layers of
// a 2x1x1 grid. Both cover voxel 0; only the second covers voxel 1.
func layeredSegmentation(t *testing.T) *Segmentation {
	t.Helper()
	vol, err := volume.New(volume.Uint8, 2, 2, 1, 1)
	require.NoError(t, err)
	vol.Set(0, 0, 0, 0, 1)
	vol.Set(1, 0, 0, 0, 1)
	vol.Set(1, 1, 0, 0, 1)

	s := New(vol)
	s.Segments = []Segment{
		{ID: "a", Name: Ptr("a"), LabelValue: Ptr(1), Layer: Ptr(0)},
		{ID: "b", Name: Ptr("b"), LabelValue: Ptr(1), Layer: Ptr(1)},
	}
	return s
}

// TestExtractRelabels verifies selected segments are remapped and others cleared
func TestExtractRelabels(t *testing.T) {
	s := labelSegmentation(t)
	before := s.Clone()

	out, err := Extract(s, []Selection{
		{Selector: ByName("ribs"), LabelValue: 10},
		{Selector: ByName("spine"), LabelValue: 20},
	}, ExtractOptions{})
	require.NoError(t, err)

	assert.Equal(t, []int32{10, 20, 0}, out.Voxels.Data)
	assert.Equal(t, []int{3, 1, 1}, out.Voxels.Sizes)
	assert.Equal(t, volume.Uint8, out.Voxels.Type)
	assert.Equal(t, "Binary labelmap", out.MasterRepresentation)
	assert.Equal(t, s.IJKToLPS, out.IJKToLPS)

	require.Len(t, out.Segments, 2)
	ribs := out.Segments[0]
	assert.Equal(t, "Segment_1", ribs.ID)
	assert.Equal(t, 10, *ribs.LabelValue)
	assert.Equal(t, 0, *ribs.Layer)
	assert.Equal(t, Extent{0, 2, 0, 0, 0, 0}, *ribs.Extent)
	assert.Equal(t, Color{1, 0, 0}, *ribs.Color)
	assert.Equal(t, ribTerminology(), ribs.Terminology)
	assert.Equal(t, 20, *out.Segments[1].LabelValue)
	assert.Equal(t, "completed", *out.Segments[1].Status)

	assert.Equal(t, before, s, "source is not modified")

	out.Segments[0].Terminology.Type.CodeMeaning = "changed"
	assert.Equal(t, "Rib", s.Segments[0].Terminology.Type.CodeMeaning, "output does not share segment data")
}

// TestExtractByTerminology verifies terminology selectors
func TestExtractByTerminology(t *testing.T) {
	s := labelSegmentation(t)

	out, err := Extract(s, []Selection{{Selector: ByTerminology(ribTerminology()), LabelValue: 7}}, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 0, 0}, out.Voxels.Data)
	assert.Equal(t, "ribs", *out.Segments[0].Name)
}

// TestExtractLaterSelectionWins verifies overlapping voxels take the later label
func TestExtractLaterSelectionWins(t *testing.T) {
	s := layeredSegmentation(t)

	out, err := Extract(s, []Selection{
		{Selector: ByName("a"), LabelValue: 5},
		{Selector: ByName("b"), LabelValue: 7},
	}, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 1}, out.Voxels.Sizes, "output is single-layer")
	assert.Equal(t, []int32{7, 7}, out.Voxels.Data)

	out, err = Extract(s, []Selection{
		{Selector: ByName("b"), LabelValue: 7},
		{Selector: ByName("a"), LabelValue: 5},
	}, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 7}, out.Voxels.Data)
	assert.Equal(t, 0, *out.Segments[1].Layer)
}

// TestExtractMergesMatches verifies that all same-named segments are merged
func TestExtractMergesMatches(t *testing.T) {
	vol, err := volume.New(volume.Uint8, 2, 2, 2)
	require.NoError(t, err)
	vol.Data[0] = 1
	vol.Data[7] = 2

	s := New(vol)
	s.Segments = []Segment{
		{ID: "Segment_1", Name: Ptr("bone"), LabelValue: Ptr(1), Extent: &Extent{0, 10, 0, 10, 0, 10}},
		{ID: "Segment_2", Name: Ptr("bone"), LabelValue: Ptr(2), Extent: &Extent{5, 20, 5, 20, 5, 20}},
	}
	selections := []Selection{{Selector: ByName("bone"), LabelValue: 3}}

	out, err := Extract(s, selections, ExtractOptions{MinimalExtent: true})
	require.NoError(t, err)
	require.Len(t, out.Segments, 1)
	assert.Equal(t, Extent{0, 20, 0, 20, 0, 20}, *out.Segments[0].Extent)
	assert.Equal(t, []int32{3, 0, 0, 0, 0, 0, 0, 3}, out.Voxels.Data)
	assert.Equal(t, "Segment_1", out.Segments[0].ID)

	out, err = Extract(s, selections, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, Extent{0, 1, 0, 1, 0, 1}, *out.Segments[0].Extent)
}

// TestExtractMinimalExtentSkipsInvalid verifies that missing and invalid
// extents do not widen the merged extent
func TestExtractMinimalExtentSkipsInvalid(t *testing.T) {
	vol, err := volume.New(volume.Uint8, 2, 2, 2)
	require.NoError(t, err)
	selections := []Selection{{Selector: ByName("bone"), LabelValue: 1}}

	s := New(vol)
	s.Segments = []Segment{
		{ID: "Segment_1", Name: Ptr("bone"), LabelValue: Ptr(1)},
		{ID: "Segment_2", Name: Ptr("bone"), LabelValue: Ptr(2), Extent: &Extent{3, 1, 0, 0, 0, 0}},
	}
	out, err := Extract(s, selections, ExtractOptions{MinimalExtent: true})
	require.NoError(t, err)
	require.Len(t, out.Segments, 1)
	assert.Equal(t, InvalidExtent(), *out.Segments[0].Extent)

	s.Segments[0].Extent = &Extent{0, 1, 0, 0, 1, 1}
	out, err = Extract(s, selections, ExtractOptions{MinimalExtent: true})
	require.NoError(t, err)
	assert.Equal(t, Extent{0, 1, 0, 0, 1, 1}, *out.Segments[0].Extent)
}

// TestExtractUniqueIDs verifies that selecting a segment twice keeps IDs unique
func TestExtractUniqueIDs(t *testing.T) {
	s := labelSegmentation(t)

	out, err := Extract(s, []Selection{
		{Selector: ByName("ribs"), LabelValue: 1},
		{Selector: ByName("ribs"), LabelValue: 2},
	}, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Segment_1", out.Segments[0].ID)
	assert.Equal(t, "Segment_4", out.Segments[1].ID)
	assert.Equal(t, []int32{2, 0, 0}, out.Voxels.Data)
}

// TestExtractErrors verifies failures leave no partial result
func TestExtractErrors(t *testing.T) {
	s := labelSegmentation(t)

	out, err := Extract(s, []Selection{
		{Selector: ByName("ribs"), LabelValue: 1},
		{Selector: ByName("kidney"), LabelValue: 2},
	}, ExtractOptions{})
	assert.ErrorIs(t, err, segerr.ErrNotFound)
	assert.Nil(t, out)

	_, err = Extract(s, []Selection{{Selector: ByName("ribs"), LabelValue: 300}}, ExtractOptions{})
	assert.ErrorIs(t, err, segerr.ErrValue)

	s.Segments[2].LabelValue = nil
	_, err = Extract(s, []Selection{{Selector: ByName("liver"), LabelValue: 1}}, ExtractOptions{})
	assert.ErrorIs(t, err, segerr.ErrValue)

	_, err = Extract(New(nil), nil, ExtractOptions{})
	assert.ErrorIs(t, err, segerr.ErrValue)

	layered := layeredSegmentation(t)
	layered.Segments[1].Layer = Ptr(2)
	_, err = Extract(layered, []Selection{{Selector: ByName("b"), LabelValue: 1}}, ExtractOptions{})
	assert.ErrorIs(t, err, segerr.ErrValue)

	layered.Segments[1].Layer = Ptr(-1)
	_, err = Extract(layered, []Selection{{Selector: ByName("b"), LabelValue: 1}}, ExtractOptions{})
	assert.ErrorIs(t, err, segerr.ErrValue)
}

// TestSelectorString verifies selector descriptions used in errors
func TestSelectorString(t *testing.T) {
	assert.Equal(t, "name ribs", ByName("ribs").String())
	assert.Equal(t, "terminology "+ribsTerminology, ByTerminology(ribTerminology()).String())
}
