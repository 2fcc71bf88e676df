// Package statistics measures the segments of a segmentation from its voxels.
package statistics

import (
	"fmt"
	"runtime"

	"gonum.org/v1/gonum/stat"

	"slicerio/pkg/logging"
	"slicerio/pkg/segerr"
	"slicerio/pkg/segmentation"
	"slicerio/pkg/volume"
)

// SegmentStats holds the measurements of one segment.
type SegmentStats struct {
	// ID and Name identify the measured segment. Name is empty when the
	// segment has none.
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// LabelValue and Layer locate the segment in the voxel array.
	LabelValue int `json:"labelValue" yaml:"labelValue"`
	Layer      int `json:"layer" yaml:"layer"`

	// VoxelCount is the number of voxels carrying the label on the layer.
	VoxelCount int `json:"voxelCount" yaml:"voxelCount"`

	// Volume is VoxelCount times the physical voxel volume, in mm³.
	Volume float64 `json:"volumeMm3" yaml:"volumeMm3"`

	// Centroid is the mean voxel position in LPS millimetres, nil for an
	// empty segment.
	Centroid *[3]float64 `json:"centroid,omitempty" yaml:"centroid,omitempty"`

	// Extent is the tight voxel bounding box. It is the invalid extent for
	// an empty segment.
	Extent segmentation.Extent `json:"extent" yaml:"extent"`
}

// Empty reports whether no voxel carries the segment's label.
func (st SegmentStats) Empty() bool {
	return st.VoxelCount == 0
}

// Options control Compute.
type Options struct {
	// Workers is the number of segments measured in parallel. Zero or less
	// uses all available cores.
	Workers int
}

// Compute measures every segment of s. Segments without a label value are
// skipped. The result follows segment order.
func Compute(s *segmentation.Segmentation, opts Options) ([]SegmentStats, error) {
	vol := s.Voxels
	if vol == nil {
		return nil, segerr.Valuef("segmentation does not contain voxels")
	}
	if err := vol.Validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var tasks []int
	for i, seg := range s.Segments {
		if seg.LabelValue == nil {
			logging.Default().WithSegment(i, seg.ID).Debug("segment has no label value, skipped")
			continue
		}
		tasks = append(tasks, i)
	}

	type measureResult struct {
		slot  int
		stats SegmentStats
		err   error
	}
	resultChan := make(chan measureResult)
	sem := make(chan struct{}, workers)

	for slot, index := range tasks {
		go func(slot int, seg *segmentation.Segment) {
			sem <- struct{}{}
			defer func() { <-sem }()
			st, err := measure(s, seg)
			resultChan <- measureResult{slot: slot, stats: st, err: err}
		}(slot, &s.Segments[index])
	}

	result := make([]SegmentStats, len(tasks))
	var firstErr error
	for range tasks {
		res := <-resultChan
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		result[res.slot] = res.stats
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

// measure scans the segment's layer once, collecting per-axis voxel
// histograms from which the centroid and tight extent follow.
func measure(s *segmentation.Segmentation, seg *segmentation.Segment) (SegmentStats, error) {
	vol := s.Voxels
	st := SegmentStats{
		ID:         seg.ID,
		LabelValue: *seg.LabelValue,
		Extent:     segmentation.InvalidExtent(),
	}
	if seg.Name != nil {
		st.Name = *seg.Name
	}
	if vol.Layered() && seg.Layer != nil {
		st.Layer = *seg.Layer
	}
	if st.Layer < 0 || st.Layer >= vol.Layers() {
		return SegmentStats{}, segerr.Valuef("segment %q is on layer %d, volume has %d", seg.ID, st.Layer, vol.Layers())
	}

	grid := vol.Grid()
	hist := axisHistograms(vol, grid, st.Layer, int32(st.LabelValue))
	for _, w := range hist[0] {
		st.VoxelCount += int(w)
	}
	if st.VoxelCount == 0 {
		return st, nil
	}

	var ijk [3]float64
	for axis := 0; axis < 3; axis++ {
		positions := make([]float64, grid[axis])
		for n := range positions {
			positions[n] = float64(n)
		}
		ijk[axis] = stat.Mean(positions, hist[axis])
		lo, hi := occupiedRange(hist[axis])
		st.Extent[2*axis] = lo
		st.Extent[2*axis+1] = hi
	}
	centroid := s.IJKToLPS.Apply(ijk)
	st.Centroid = &centroid
	st.Volume = float64(st.VoxelCount) * s.IJKToLPS.VoxelVolume()
	return st, nil
}

// axisHistograms counts the matching voxels in every i, j and k plane.
func axisHistograms(vol *volume.Volume, grid [3]int, layer int, label int32) [3][]float64 {
	hist := [3][]float64{
		make([]float64, grid[0]),
		make([]float64, grid[1]),
		make([]float64, grid[2]),
	}
	layers := vol.Layers()
	v := 0
	for k := 0; k < grid[2]; k++ {
		for j := 0; j < grid[1]; j++ {
			for i := 0; i < grid[0]; i++ {
				if vol.Data[layer+layers*v] == label {
					hist[0][i]++
					hist[1][j]++
					hist[2][k]++
				}
				v++
			}
		}
	}
	return hist
}

func occupiedRange(weights []float64) (lo, hi int) {
	lo, hi = -1, -1
	for n, w := range weights {
		if w == 0 {
			continue
		}
		if lo < 0 {
			lo = n
		}
		hi = n
	}
	return lo, hi
}

// Summary formats st on one line.
func (st SegmentStats) Summary() string {
	if st.Empty() {
		return fmt.Sprintf("%s (label %d, layer %d): empty", st.ID, st.LabelValue, st.Layer)
	}
	return fmt.Sprintf("%s (label %d, layer %d): %d voxels, %.3f mm3, centroid (%.2f, %.2f, %.2f)",
		st.ID, st.LabelValue, st.Layer, st.VoxelCount, st.Volume, st.Centroid[0], st.Centroid[1], st.Centroid[2])
}
