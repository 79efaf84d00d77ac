package chunk

import (
	"sync/atomic"

	"github.com/dm-vev/adamant/server/block/cube"
)

// Section is a 16x16x16 part of a LevelChunk.
type Section struct {
	// Blocks holds the runtime IDs of the section, indexed by y<<8|z<<4|x.
	Blocks [SectionVoxels]uint32
	// Biomes holds one biome per 4x4x4 cell, indexed by y/4<<4|z/4<<2|x/4.
	Biomes [SectionBiomes]uint32
}

// LevelChunk is a finalised chunk as it is served to the rest of the server
// and persisted. Apart from its light containers and dirty flag a LevelChunk
// is not modified once created.
type LevelChunk struct {
	pos    Pos
	status Stage
	r      cube.Range
	air    uint32

	sections   []Section
	heightmaps Heightmaps

	blockLight []LightContainer
	skyLight   []LightContainer

	// BlockEntities holds the NBT of block entities in the chunk.
	BlockEntities BlockEntities
	// ScheduledTicks holds block updates scheduled in the chunk.
	ScheduledTicks []ScheduledTick
	// Starts and References carry the structure state of a chunk that was
	// stored before it was fully generated.
	Starts     []StructureStart
	References []Pos

	lightPopulated bool
	dirty          atomic.Bool
}

// NewLevel returns a LevelChunk filled with air with the status passed. It is
// used by providers decoding stored chunks; the generation pipeline creates
// LevelChunks through Upgrade.
func NewLevel(pos Pos, r cube.Range, air uint32, status Stage) *LevelChunk {
	n := r.Sections()
	l := &LevelChunk{
		pos:           pos,
		status:        status,
		r:             r,
		air:           air,
		sections:      make([]Section, n),
		blockLight:    emptyLights(n, 0),
		skyLight:      emptyLights(n, 0),
		BlockEntities: BlockEntities{},
	}
	if air != 0 {
		for i := range l.sections {
			for j := range l.sections[i].Blocks {
				l.sections[i].Blocks[j] = air
			}
		}
	}
	return l
}

// Pos ...
func (l *LevelChunk) Pos() Pos { return l.pos }

// Stage returns the status the chunk was persisted with. Chunks produced by the
// pipeline are always StageFull.
func (l *LevelChunk) Stage() Stage { return l.status }

// Range ...
func (l *LevelChunk) Range() cube.Range { return l.r }

// Air returns the runtime ID the chunk treats as air.
func (l *LevelChunk) Air() uint32 { return l.air }

// Sections returns the sections of the chunk from the bottom up. The slice
// shares its backing array with the chunk.
func (l *LevelChunk) Sections() []Section { return l.sections }

// Heightmaps returns the heightmaps computed when the chunk was finalised.
func (l *LevelChunk) Heightmaps() Heightmaps { return l.heightmaps }

// Block ...
func (l *LevelChunk) Block(x uint8, y int16, z uint8) uint32 {
	i := sectionIndex(l.r, y)
	if i < 0 || i >= len(l.sections) {
		return l.air
	}
	return l.sections[i].Blocks[voxelIndex(x, uint8(int(y)-l.r[0]), z)]
}

// SetBlock sets a block in the chunk. It is only used while decoding stored
// chunks and does not mark the chunk dirty.
func (l *LevelChunk) SetBlock(x uint8, y int16, z uint8, rid uint32) {
	i := sectionIndex(l.r, y)
	if i < 0 || i >= len(l.sections) {
		return
	}
	l.sections[i].Blocks[voxelIndex(x, uint8(int(y)-l.r[0]), z)] = rid
}

// Biome ...
func (l *LevelChunk) Biome(x uint8, y int16, z uint8) uint32 {
	i := sectionIndex(l.r, y)
	if i < 0 || i >= len(l.sections) {
		return 0
	}
	return l.sections[i].Biomes[biomeIndex(x, uint8(int(y)-l.r[0]), z)]
}

// BlockLights ...
func (l *LevelChunk) BlockLights() []LightContainer { return l.blockLight }

// SkyLights ...
func (l *LevelChunk) SkyLights() []LightContainer { return l.skyLight }

// SetLights replaces the light containers of the chunk. Both slices must hold
// one container per section.
func (l *LevelChunk) SetLights(block, sky []LightContainer) {
	l.blockLight, l.skyLight = block, sky
}

// LightPopulated reports if the light of the chunk was computed by light
// propagation rather than filled uniformly.
func (l *LevelChunk) LightPopulated() bool { return l.lightPopulated }

// SetLightPopulated sets the flag returned by LightPopulated.
func (l *LevelChunk) SetLightPopulated(v bool) { l.lightPopulated = v }

// MarkDirty marks the chunk as changed since it was last saved.
func (l *LevelChunk) MarkDirty() { l.dirty.Store(true) }

// Dirty reports if the chunk changed since it was last saved.
func (l *LevelChunk) Dirty() bool { return l.dirty.Load() }

// MarkSaved clears the dirty flag.
func (l *LevelChunk) MarkSaved() { l.dirty.Store(false) }

func (*LevelChunk) sealed() {}
