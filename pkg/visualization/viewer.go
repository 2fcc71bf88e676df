// Package visualization renders segmentations as colored 2D slices.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"slicerio/pkg/segerr"
	"slicerio/pkg/segmentation"
	"slicerio/pkg/volume"
)

// fallbackColor paints segments that carry no color.
var fallbackColor = color.RGBA{R: 128, G: 174, B: 128, A: 255}

// paint is one segment as seen by the renderer.
type paint struct {
	layer int
	label int32
	color color.RGBA
}

// Viewer renders the segments of a segmentation slice by slice. Each voxel
// takes the color of the last segment, in segment order, that covers it on
// any layer. Voxels covered by no segment are black.
type Viewer struct {
	// vol holds the labelled voxels
	vol *volume.Volume

	// dimensions of the voxel grid along i, j and k
	width  int
	height int
	depth  int

	// paints lists the renderable segments in segment order
	paints []paint
}

// NewViewer creates a viewer for s. Segments without a label value are not
// drawn; a segment on a layer the volume does not have is an error.
func NewViewer(s *segmentation.Segmentation) (*Viewer, error) {
	if s.Voxels == nil {
		return nil, segerr.Valuef("segmentation does not contain voxels")
	}
	if err := s.Voxels.Validate(); err != nil {
		return nil, err
	}
	grid := s.Voxels.Grid()
	v := &Viewer{
		vol:    s.Voxels,
		width:  grid[0],
		height: grid[1],
		depth:  grid[2],
	}
	for _, seg := range s.Segments {
		if seg.LabelValue == nil {
			continue
		}
		p := paint{label: int32(*seg.LabelValue), color: fallbackColor}
		if s.Voxels.Layered() && seg.Layer != nil {
			p.layer = *seg.Layer
		}
		if p.layer < 0 || p.layer >= s.Voxels.Layers() {
			return nil, segerr.Valuef("segment %q is on layer %d, volume has %d", seg.ID, p.layer, s.Voxels.Layers())
		}
		if seg.Color != nil {
			p.color = toRGBA(*seg.Color)
		}
		v.paints = append(v.paints, p)
	}
	return v, nil
}

func toRGBA(c segmentation.Color) color.RGBA {
	channel := func(f float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, f)) * 255))
	}
	return color.RGBA{R: channel(c[0]), G: channel(c[1]), B: channel(c[2]), A: 255}
}

// voxelColor returns the composited color at voxel (i, j, k).
func (v *Viewer) voxelColor(i, j, k int) color.RGBA {
	c := color.RGBA{A: 255}
	for _, p := range v.paints {
		if v.vol.LayerAt(p.layer, i, j, k) == p.label {
			c = p.color
		}
	}
	return c
}

// ExtractSlice extracts a 2D slice from the grid along the specified axis.
// An "x" slice spans (k, j), a "y" slice (i, k) and a "z" slice (i, j).
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.RGBA

	switch axis {
	case "x", "X":
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		img = image.NewRGBA(image.Rect(0, 0, v.depth, v.height))
		for j := 0; j < v.height; j++ {
			for k := 0; k < v.depth; k++ {
				img.SetRGBA(k, j, v.voxelColor(position, j, k))
			}
		}

	case "y", "Y":
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		img = image.NewRGBA(image.Rect(0, 0, v.width, v.depth))
		for k := 0; k < v.depth; k++ {
			for i := 0; i < v.width; i++ {
				img.SetRGBA(i, k, v.voxelColor(i, position, k))
			}
		}

	case "z", "Z":
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		img = image.NewRGBA(image.Rect(0, 0, v.width, v.height))
		for j := 0; j < v.height; j++ {
			for i := 0; i < v.width; i++ {
				img.SetRGBA(i, j, v.voxelColor(i, j, position))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// ExtractRegion crops the voxel array to the given extent, keeping every
// layer.
func (v *Viewer) ExtractRegion(extent segmentation.Extent) (*volume.Volume, error) {
	if !extent.Valid() {
		return nil, fmt.Errorf("extent %v is empty", extent)
	}
	if extent[0] < 0 || extent[2] < 0 || extent[4] < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if extent[1] >= v.width || extent[3] >= v.height || extent[5] >= v.depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	sizeI := extent[1] - extent[0] + 1
	sizeJ := extent[3] - extent[2] + 1
	sizeK := extent[5] - extent[4] + 1
	layers := v.vol.Layers()

	sizes := []int{sizeI, sizeJ, sizeK}
	if v.vol.Layered() {
		sizes = append([]int{layers}, sizes...)
	}
	region, err := volume.New(v.vol.Type, sizes...)
	if err != nil {
		return nil, err
	}

	for k := 0; k < sizeK; k++ {
		for j := 0; j < sizeJ; j++ {
			for i := 0; i < sizeI; i++ {
				for l := 0; l < layers; l++ {
					region.Set(l, i, j, k, v.vol.LayerAt(l, extent[0]+i, extent[2]+j, extent[4]+k))
				}
			}
		}
	}
	return region, nil
}

// SaveSlice saves an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
