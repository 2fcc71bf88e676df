// Package geometry derives the voxel-to-physical transform of a segmentation
// from its NRRD space fields, and decomposes it again for writing.
//
// Physical coordinates are always reported in LPS (left-posterior-superior).
// Files stored in RAS are converted on read; files are always written in LPS.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"slicerio/pkg/segerr"
)

// Space names accepted in the NRRD "space" field.
const (
	SpaceLPS = "left-posterior-superior"
	SpaceRAS = "right-anterior-superior"
)

// Transform is a 4x4 affine matrix mapping homogeneous IJK voxel indices to
// physical LPS coordinates. Columns 0-2 hold the axis direction vectors
// (scaled by spacing), column 3 holds the origin.
type Transform [4][4]float64

// Identity returns the identity transform.
func Identity() Transform {
	var t Transform
	for i := 0; i < 4; i++ {
		t[i][i] = 1
	}
	return t
}

// Dense returns t as a gonum matrix.
func (t Transform) Dense() *mat.Dense {
	data := make([]float64, 0, 16)
	for _, row := range t {
		data = append(data, row[:]...)
	}
	return mat.NewDense(4, 4, data)
}

// FromDense copies a 4x4 gonum matrix into a Transform.
func FromDense(m mat.Matrix) Transform {
	var t Transform
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			t[i][j] = m.At(i, j)
		}
	}
	return t
}

// Apply maps a voxel position to physical LPS coordinates.
func (t Transform) Apply(ijk [3]float64) [3]float64 {
	var p [3]float64
	for r := 0; r < 3; r++ {
		p[r] = t[r][0]*ijk[0] + t[r][1]*ijk[1] + t[r][2]*ijk[2] + t[r][3]
	}
	return p
}

// VoxelVolume returns the physical volume of one voxel, the absolute
// determinant of the linear block.
func (t Transform) VoxelVolume() float64 {
	linear := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			linear.Set(i, j, t[i][j])
		}
	}
	return math.Abs(mat.Det(linear))
}

// Spacing returns the length of each axis direction vector.
func (t Transform) Spacing() [3]float64 {
	var s [3]float64
	for j := 0; j < 3; j++ {
		col := mat.NewVecDense(3, []float64{t[0][j], t[1][j], t[2][j]})
		s[j] = mat.Norm(col, 2)
	}
	return s
}

// SpaceToLPS returns the sign matrix converting the named space to LPS.
func SpaceToLPS(space string) (*mat.Dense, error) {
	switch space {
	case SpaceLPS:
		return mat.DenseCopyOf(mat.NewDiagDense(4, []float64{1, 1, 1, 1})), nil
	case SpaceRAS:
		return mat.DenseCopyOf(mat.NewDiagDense(4, []float64{-1, -1, 1, 1})), nil
	default:
		return nil, segerr.Formatf("space", "must be %q or %q, got %q", SpaceLPS, SpaceRAS, space)
	}
}

// Build assembles the IJK to LPS transform. directions holds one row per
// array axis; a 4-row block is expected for layered arrays, whose first
// (non-spatial) row is dropped. A nil directions block or origin leaves the
// identity direction or zero origin in place.
func Build(space string, directions [][]float64, origin []float64) (Transform, error) {
	toLPS, err := SpaceToLPS(space)
	if err != nil {
		return Transform{}, err
	}

	ijkToSpace := Identity()
	if directions != nil {
		if len(directions) == 4 {
			directions = directions[1:]
		}
		if len(directions) != 3 {
			return Transform{}, segerr.Formatf("space directions", "expected 3 axis vectors, got %d", len(directions))
		}
		for axis, vec := range directions {
			if len(vec) != 3 {
				return Transform{}, segerr.Formatf("space directions", "axis %d vector has %d components", axis, len(vec))
			}
			for r := 0; r < 3; r++ {
				ijkToSpace[r][axis] = vec[r]
			}
		}
	}
	if origin != nil {
		if len(origin) != 3 {
			return Transform{}, segerr.Formatf("space origin", "expected 3 components, got %d", len(origin))
		}
		for r := 0; r < 3; r++ {
			ijkToSpace[r][3] = origin[r]
		}
	}

	var ijkToLPS mat.Dense
	ijkToLPS.Mul(toLPS, ijkToSpace.Dense())
	return FromDense(&ijkToLPS), nil
}

// Decompose splits t into NRRD space directions (one row per array axis) and
// space origin, in LPS. When layered is true a NaN row is prepended for the
// non-spatial layer axis.
func Decompose(t Transform, layered bool) (directions [][]float64, origin []float64) {
	if layered {
		directions = append(directions, []float64{math.NaN(), math.NaN(), math.NaN()})
	}
	for axis := 0; axis < 3; axis++ {
		directions = append(directions, []float64{t[0][axis], t[1][axis], t[2][axis]})
	}
	origin = []float64{t[0][3], t[1][3], t[2][3]}
	return directions, origin
}
