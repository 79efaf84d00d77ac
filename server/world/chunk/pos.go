package chunk

import (
	"fmt"

	"github.com/dm-vev/adamant/server/block/cube"
)

const (
	// SectionVoxels is the number of voxels in a 16x16x16 section.
	SectionVoxels = 16 * 16 * 16
	// SectionBiomes is the number of 4x4x4 biome cells in a section.
	SectionBiomes = 4 * 4 * 4
	// MaxLight is the highest light level a voxel can hold.
	MaxLight = 15
)

// Pos holds the position of a chunk. The type is provided as a utility struct
// for keeping track of a chunk's position. Chunks do not themselves keep track
// of that. Chunk positions are different from block positions in the way that
// increasing the X/Z by one means increasing the absolute value on the X/Z
// axis in terms of blocks by 16.
type Pos [2]int32

// String implements fmt.Stringer and returns (x, z).
func (p Pos) String() string {
	return fmt.Sprintf("(%v, %v)", p[0], p[1])
}

// X returns the X coordinate of the chunk position.
func (p Pos) X() int32 {
	return p[0]
}

// Z returns the Z coordinate of the chunk position.
func (p Pos) Z() int32 {
	return p[1]
}

// Add returns p offset by dx and dz chunks.
func (p Pos) Add(dx, dz int32) Pos {
	return Pos{p[0] + dx, p[1] + dz}
}

// Distance returns the Chebyshev distance between two chunk positions, which
// is the number of rings p lies away from o.
func (p Pos) Distance(o Pos) int {
	return int(max(cube.Abs(p[0]-o[0]), cube.Abs(p[1]-o[1])))
}

// Pack packs the position into a single int64, with X in the upper and Z in
// the lower 32 bits.
func (p Pos) Pack() int64 {
	return int64(p[0])<<32 | int64(uint32(p[1]))
}

// Unpack returns the position packed into v by Pos.Pack.
func Unpack(v int64) Pos {
	return Pos{int32(v >> 32), int32(uint32(v))}
}

// PosFromBlock returns the position of the chunk that holds the block
// position passed.
func PosFromBlock(pos cube.Pos) Pos {
	return Pos{int32(pos[0] >> 4), int32(pos[2] >> 4)}
}

// Square returns every chunk position within radius rings of centre, row by
// row starting from the minimum corner.
func Square(centre Pos, radius int) []Pos {
	r := int32(radius)
	out := make([]Pos, 0, (2*radius+1)*(2*radius+1))
	for z := -r; z <= r; z++ {
		for x := -r; x <= r; x++ {
			out = append(out, centre.Add(x, z))
		}
	}
	return out
}
