// Package volume holds the voxel arrays of a segmentation.
package volume

import (
	"fmt"
	"math"
	"slices"

	"slicerio/pkg/segerr"
)

// Type is an NRRD element type.
type Type string

// Supported element types. Label maps are integer valued, and every supported
// type fits in int32.
const (
	Int8   Type = "int8"
	Uint8  Type = "uint8"
	Int16  Type = "int16"
	Uint16 Type = "uint16"
	Int32  Type = "int32"
)

// Size returns the number of bytes of one element.
func (t Type) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32:
		return 4
	}
	return 0
}

// Range returns the inclusive value range of t.
func (t Type) Range() (lo, hi int64) {
	switch t {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	}
	return 0, -1
}

// ParseType maps NRRD type spellings to a Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "signed char", "int8", "int8_t":
		return Int8, nil
	case "uchar", "unsigned char", "uint8", "uint8_t":
		return Uint8, nil
	case "short", "short int", "signed short", "signed short int", "int16", "int16_t":
		return Int16, nil
	case "ushort", "unsigned short", "unsigned short int", "uint16", "uint16_t":
		return Uint16, nil
	case "int", "signed int", "int32", "int32_t":
		return Int32, nil
	}
	return "", segerr.Valuef("unsupported voxel type %q", name)
}

// Volume is a 3-D label map, or a 4-D stack of label map layers.
//
// Sizes are listed in file axis order, fastest varying first: [I, J, K] for a
// single layer and [L, I, J, K] for L layers. Data holds one value per voxel,
// at index l + L*(i + I*(j + J*k)).
type Volume struct {
	// Type is the element type used when the volume is written.
	Type Type

	// Sizes are the axis lengths.
	Sizes []int

	// Data holds the voxel values.
	Data []int32
}

// New allocates a zero-filled volume.
func New(t Type, sizes ...int) (*Volume, error) {
	if t.Size() == 0 {
		return nil, segerr.Valuef("unsupported voxel type %q", t)
	}
	if len(sizes) != 3 && len(sizes) != 4 {
		return nil, segerr.Valuef("unsupported number of dimensions: %d", len(sizes))
	}
	n := 1
	for _, s := range sizes {
		if s <= 0 {
			return nil, segerr.Valuef("axis sizes must be positive: %v", sizes)
		}
		n *= s
	}
	return &Volume{Type: t, Sizes: slices.Clone(sizes), Data: make([]int32, n)}, nil
}

// Dims returns the number of axes.
func (v *Volume) Dims() int { return len(v.Sizes) }

// Layered reports whether the volume stores overlapping layers.
func (v *Volume) Layered() bool { return len(v.Sizes) == 4 }

// Layers returns the number of layers, 1 for a 3-D volume.
func (v *Volume) Layers() int {
	if v.Layered() {
		return v.Sizes[0]
	}
	return 1
}

// Grid returns the spatial sizes [I, J, K].
func (v *Volume) Grid() [3]int {
	n := len(v.Sizes)
	return [3]int{v.Sizes[n-3], v.Sizes[n-2], v.Sizes[n-1]}
}

// Validate checks dimensionality and buffer length.
func (v *Volume) Validate() error {
	if v.Dims() != 3 && v.Dims() != 4 {
		return segerr.Valuef("unsupported number of dimensions: %d", v.Dims())
	}
	n := 1
	for _, s := range v.Sizes {
		n *= s
	}
	if n != len(v.Data) {
		return segerr.Valuef("voxel buffer holds %d values, sizes %v need %d", len(v.Data), v.Sizes, n)
	}
	return nil
}

// LayerAt returns the value at voxel (i, j, k) of layer l. For a 3-D volume
// l must be 0.
func (v *Volume) LayerAt(l, i, j, k int) int32 {
	return v.Data[v.offset(l, i, j, k)]
}

// At returns the value at voxel (i, j, k) of the first layer.
func (v *Volume) At(i, j, k int) int32 {
	return v.LayerAt(0, i, j, k)
}

// Set stores value at voxel (i, j, k) of layer l.
func (v *Volume) Set(l, i, j, k int, value int32) {
	v.Data[v.offset(l, i, j, k)] = value
}

func (v *Volume) offset(l, i, j, k int) int {
	g := v.Grid()
	return l + v.Layers()*(i+g[0]*(j+g[1]*k))
}

// FitsType reports whether value can be stored in the element type.
func (v *Volume) FitsType(value int) bool {
	lo, hi := v.Type.Range()
	return int64(value) >= lo && int64(value) <= hi
}

// Clone returns a deep copy of v.
func (v *Volume) Clone() *Volume {
	if v == nil {
		return nil
	}
	return &Volume{Type: v.Type, Sizes: slices.Clone(v.Sizes), Data: slices.Clone(v.Data)}
}

func (v *Volume) String() string {
	return fmt.Sprintf("%s%v", v.Type, v.Sizes)
}
