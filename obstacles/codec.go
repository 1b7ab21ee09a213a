package obstacles

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	keyBits = 21
	keyMask = 1<<keyBits - 1
	keyBias = 1 << (keyBits - 1)
)

// KeyCodec decodes opaque voxel keys into metric voxel centers.
type KeyCodec interface {
	Decode(key uint64) r3.Vector
}

// PackedKeyCodec decodes keys holding three biased 21-bit voxel indices, x in the low
// bits and z in the high bits.
type PackedKeyCodec struct {
	VoxelSize float64
}

// Decode returns the metric center of the voxel identified by key.
func (c PackedKeyCodec) Decode(key uint64) r3.Vector {
	return r3.Vector{
		X: c.center(key),
		Y: c.center(key >> keyBits),
		Z: c.center(key >> (2 * keyBits)),
	}
}

// Encode packs voxel indices into a key. Indices must lie in [-2^20, 2^20).
func (c PackedKeyCodec) Encode(x, y, z int) uint64 {
	return uint64(x+keyBias)&keyMask |
		(uint64(y+keyBias)&keyMask)<<keyBits |
		(uint64(z+keyBias)&keyMask)<<(2*keyBits)
}

// EncodePoint packs the voxel containing p into a key.
func (c PackedKeyCodec) EncodePoint(p r3.Vector) uint64 {
	return c.Encode(c.index(p.X), c.index(p.Y), c.index(p.Z))
}

func (c PackedKeyCodec) center(bits uint64) float64 {
	idx := int(bits&keyMask) - keyBias
	return (float64(idx) + 0.5) * c.VoxelSize
}

func (c PackedKeyCodec) index(v float64) int {
	return int(math.Floor(v / c.VoxelSize))
}
