package chunk

import (
	"github.com/dm-vev/adamant/server/block/cube"
)

// Chunk is a chunk column in one of its two representations: a *ProtoChunk
// that is still being generated, or a finalised *LevelChunk. No other types
// implement Chunk.
type Chunk interface {
	// Pos returns the position of the chunk.
	Pos() Pos
	// Stage returns the generation stage of the chunk. A LevelChunk held in
	// memory always reports StageFull.
	Stage() Stage
	// Range returns the height range of the chunk.
	Range() cube.Range
	// Block returns the runtime ID of the block at the chunk-relative x and z
	// and absolute y passed. Positions outside the range return the air
	// runtime ID the chunk was created with.
	Block(x uint8, y int16, z uint8) uint32
	// Biome returns the biome ID at the position passed.
	Biome(x uint8, y int16, z uint8) uint32
	// BlockLights returns the block light containers, one per section. The
	// returned slice shares its backing array with the chunk.
	BlockLights() []LightContainer
	// SkyLights returns the sky light containers, one per section. The
	// returned slice shares its backing array with the chunk.
	SkyLights() []LightContainer

	sealed()
}

// BlockEntities holds the NBT data of block entities by their absolute block
// position.
type BlockEntities map[cube.Pos]map[string]any

// ScheduledTick is a block update scheduled to happen at a specific tick.
type ScheduledTick struct {
	Pos   cube.Pos
	Block uint32
	Tick  int64
}

// StructureStart marks a structure whose placement was decided in the chunk
// that holds it. Min and Max span the blocks the structure may occupy.
type StructureStart struct {
	Name     string
	Min, Max cube.Pos
}

// Intersects reports if the bounding box of the structure overlaps the chunk
// at pos.
func (s StructureStart) Intersects(pos Pos) bool {
	minX, minZ := int(pos[0])<<4, int(pos[1])<<4
	maxX, maxZ := minX+15, minZ+15
	return s.Min[0] <= maxX && s.Max[0] >= minX && s.Min[2] <= maxZ && s.Max[2] >= minZ
}

// sectionIndex returns the index of the section holding y within r, or -1 if
// y lies outside the range.
func sectionIndex(r cube.Range, y int16) int {
	if int(y) < r[0] || int(y) > r[1] {
		return -1
	}
	return (int(y) - r[0]) >> 4
}

// SectionIndex returns the index of the section holding the absolute y passed
// in a chunk of range r, or -1 if y lies outside r.
func SectionIndex(r cube.Range, y int) int {
	if y < r[0] || y > r[1] {
		return -1
	}
	return (y - r[0]) >> 4
}

// SectionY returns the section-relative y of an absolute y in a chunk of range
// r.
func SectionY(r cube.Range, y int) uint8 {
	return uint8((y - r[0]) & 15)
}

// biomeIndex returns the index of a 4x4x4 biome cell within a section.
func biomeIndex(x, y, z uint8) int {
	return int((y&15)>>2)<<4 | int((z&15)>>2)<<2 | int((x&15)>>2)
}
