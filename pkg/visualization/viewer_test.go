package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"slicerio/pkg/segmentation"
	"slicerio/pkg/volume"
)

// createTestSegmentation builds a layered 4x3x2 segmentation: "red" covers the
// i = 0 plane on layer 0, "green" covers k = 1 on layer 1 and "nocolor" covers
// voxel (3, 2, 0) on layer 0.
func createTestSegmentation(t *testing.T) *segmentation.Segmentation {
	vol, err := volume.New(volume.Uint8, 2, 4, 3, 2)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	for k := 0; k < 2; k++ {
		for j := 0; j < 3; j++ {
			vol.Set(0, 0, j, k, 1)
			for i := 0; i < 4; i++ {
				if k == 1 {
					vol.Set(1, i, j, k, 1)
				}
			}
		}
	}
	vol.Set(0, 3, 2, 0, 2)

	s := segmentation.New(vol)
	s.Segments = []segmentation.Segment{
		{ID: "red", LabelValue: segmentation.Ptr(1), Layer: segmentation.Ptr(0), Color: &segmentation.Color{1, 0, 0}},
		{ID: "green", LabelValue: segmentation.Ptr(1), Layer: segmentation.Ptr(1), Color: &segmentation.Color{0, 1, 0}},
		{ID: "nocolor", LabelValue: segmentation.Ptr(2), Layer: segmentation.Ptr(0)},
		{ID: "unlabelled"},
	}
	return s
}

// TestNewViewer verifies that a new viewer picks up the grid and drawable segments
func TestNewViewer(t *testing.T) {
	viewer, err := NewViewer(createTestSegmentation(t))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	if viewer.width != 4 || viewer.height != 3 || viewer.depth != 2 {
		t.Errorf("Expected grid 4x3x2, got %dx%dx%d", viewer.width, viewer.height, viewer.depth)
	}

	if len(viewer.paints) != 3 {
		t.Errorf("Expected 3 drawable segments, got %d", len(viewer.paints))
	}

	if _, err := NewViewer(segmentation.New(nil)); err == nil {
		t.Error("Expected error for segmentation without voxels, got nil")
	}

	for _, layer := range []int{-1, 2} {
		s := createTestSegmentation(t)
		s.Segments[1].Layer = segmentation.Ptr(layer)
		if _, err := NewViewer(s); err == nil {
			t.Errorf("Expected error for segment on layer %d, got nil", layer)
		}
	}
}

// TestExtractSlice verifies slice colors, compositing order and dimensions
func TestExtractSlice(t *testing.T) {
	viewer, err := NewViewer(createTestSegmentation(t))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	black := color.RGBA{A: 255}

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract Z slice: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("Expected *image.RGBA, got %T", img)
	}
	if bounds := rgba.Bounds(); bounds.Dx() != 4 || bounds.Dy() != 3 {
		t.Errorf("Expected Z slice dimensions 4x3, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if got := rgba.RGBAAt(0, 1); got != red {
		t.Errorf("Expected red at (0,1), got %v", got)
	}
	if got := rgba.RGBAAt(1, 1); got != black {
		t.Errorf("Expected black at (1,1), got %v", got)
	}
	if got := rgba.RGBAAt(3, 2); got != fallbackColor {
		t.Errorf("Expected fallback color at (3,2), got %v", got)
	}

	// On k = 1 green is drawn after red and covers it.
	img, err = viewer.ExtractSlice("Z", 1)
	if err != nil {
		t.Fatalf("Failed to extract Z slice: %v", err)
	}
	if got := img.(*image.RGBA).RGBAAt(0, 0); got != green {
		t.Errorf("Expected green at (0,0), got %v", got)
	}

	imgX, err := viewer.ExtractSlice("x", 0)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if bounds := imgX.Bounds(); bounds.Dx() != 2 || bounds.Dy() != 3 {
		t.Errorf("Expected X slice dimensions 2x3, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	imgY, err := viewer.ExtractSlice("y", 2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if bounds := imgY.Bounds(); bounds.Dx() != 4 || bounds.Dy() != 2 {
		t.Errorf("Expected Y slice dimensions 4x2, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", 2); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("z", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestExtractRegion verifies that cropped regions keep every layer
func TestExtractRegion(t *testing.T) {
	s := createTestSegmentation(t)
	viewer, err := NewViewer(s)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	region, err := viewer.ExtractRegion(segmentation.Extent{2, 3, 1, 2, 0, 1})
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	expectedSizes := []int{2, 2, 2, 2}
	for n, size := range expectedSizes {
		if region.Sizes[n] != size {
			t.Fatalf("Expected region sizes %v, got %v", expectedSizes, region.Sizes)
		}
	}

	for k := 0; k < 2; k++ {
		for j := 0; j < 2; j++ {
			for i := 0; i < 2; i++ {
				for l := 0; l < 2; l++ {
					want := s.Voxels.LayerAt(l, 2+i, 1+j, k)
					if got := region.LayerAt(l, i, j, k); got != want {
						t.Errorf("Region value mismatch at (%d,%d,%d,%d): expected %d, got %d", l, i, j, k, want, got)
					}
				}
			}
		}
	}

	if _, err := viewer.ExtractRegion(segmentation.Extent{-1, 0, 0, 0, 0, 0}); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}
	if _, err := viewer.ExtractRegion(segmentation.InvalidExtent()); err == nil {
		t.Error("Expected error for empty extent, got nil")
	}
	if _, err := viewer.ExtractRegion(segmentation.Extent{0, 4, 0, 0, 0, 0}); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSlice verifies that slices can be saved to disk as PNG
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	viewer, err := NewViewer(createTestSegmentation(t))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	filename := filepath.Join(t.TempDir(), "test_slice.png")
	if err := viewer.SaveSlice(img, filename); err != nil {
		t.Fatalf("Failed to save slice: %v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Saved file cannot be opened: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Saved file is not a PNG: %v", err)
	}
	if r, _, _, _ := decoded.At(0, 0).RGBA(); r != 0xffff {
		t.Errorf("Expected red channel 0xffff at (0,0), got %#x", r)
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	viewer, err := NewViewer(createTestSegmentation(t))
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	outputDir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("x", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for i := 0; i < 4; i++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_x_%03d.png", i))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
