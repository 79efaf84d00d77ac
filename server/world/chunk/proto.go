package chunk

import (
	"fmt"
	"slices"

	"github.com/dm-vev/adamant/server/block/cube"
)

// ProtoChunk is a chunk that is still being generated. It owns flat block and
// biome arrays spanning the full height of the chunk so that generation
// stages can write without section bookkeeping. A ProtoChunk is owned by
// exactly one goroutine at a time and is not safe for concurrent use.
type ProtoChunk struct {
	pos   Pos
	stage Stage
	r     cube.Range
	air   uint32

	// blocks holds one runtime ID per voxel, indexed by
	// ((y-min)*16+z)*16+x.
	blocks []uint32
	// biomes holds one biome per 4x4x4 cell, indexed by
	// ((y-min)/4*4+z/4)*4+x/4.
	biomes []uint32

	blockLight []LightContainer
	skyLight   []LightContainer

	// Starts holds the structures whose placement was decided in this chunk.
	Starts []StructureStart
	// References holds the positions of chunks with structure starts that
	// intersect this chunk.
	References []Pos
	// BlockEntities holds block entity data carried over from a stored
	// partial chunk or placed by generation.
	BlockEntities BlockEntities
	// ScheduledTicks holds block updates carried over from a stored partial
	// chunk.
	ScheduledTicks []ScheduledTick
}

// NewProto returns an empty ProtoChunk at StageEmpty, filled with air and
// unlit.
func NewProto(pos Pos, r cube.Range, air uint32) *ProtoChunk {
	n := r.Sections()
	p := &ProtoChunk{
		pos:           pos,
		stage:         StageEmpty,
		r:             r,
		air:           air,
		blocks:        make([]uint32, n*SectionVoxels),
		biomes:        make([]uint32, n*SectionBiomes),
		blockLight:    emptyLights(n, 0),
		skyLight:      emptyLights(n, 0),
		BlockEntities: BlockEntities{},
	}
	if air != 0 {
		for i := range p.blocks {
			p.blocks[i] = air
		}
	}
	return p
}

// ProtoFromLevel reconstructs a ProtoChunk at stage s from a LevelChunk, as is
// done for chunks stored before they were fully generated or chunks that must
// be relit. The light containers of l are moved into the ProtoChunk; l must
// not be used afterwards.
func ProtoFromLevel(l *LevelChunk, s Stage) *ProtoChunk {
	n := l.r.Sections()
	p := &ProtoChunk{
		pos:            l.pos,
		stage:          s,
		r:              l.r,
		air:            l.air,
		blocks:         make([]uint32, n*SectionVoxels),
		biomes:         make([]uint32, n*SectionBiomes),
		blockLight:     l.blockLight,
		skyLight:       l.skyLight,
		BlockEntities:  l.BlockEntities,
		ScheduledTicks: l.ScheduledTicks,
		Starts:         slices.Clone(l.Starts),
		References:     slices.Clone(l.References),
	}
	if p.BlockEntities == nil {
		p.BlockEntities = BlockEntities{}
	}
	for i := range l.sections {
		copy(p.blocks[i*SectionVoxels:(i+1)*SectionVoxels], l.sections[i].Blocks[:])
		copy(p.biomes[i*SectionBiomes:(i+1)*SectionBiomes], l.sections[i].Biomes[:])
	}
	l.blockLight, l.skyLight = nil, nil
	return p
}

// Pos ...
func (p *ProtoChunk) Pos() Pos { return p.pos }

// Stage ...
func (p *ProtoChunk) Stage() Stage { return p.stage }

// Range ...
func (p *ProtoChunk) Range() cube.Range { return p.r }

// Air returns the runtime ID the chunk treats as air.
func (p *ProtoChunk) Air() uint32 { return p.air }

// SetStage moves the chunk to stage s. Stages never decrease: SetStage panics
// if s is lower than the current stage.
func (p *ProtoChunk) SetStage(s Stage) {
	if s < p.stage {
		panic(fmt.Sprintf("chunk %v: stage may not decrease from %v to %v", p.pos, p.stage, s))
	}
	p.stage = s
}

// Block ...
func (p *ProtoChunk) Block(x uint8, y int16, z uint8) uint32 {
	i, ok := p.blockIndex(x, y, z)
	if !ok {
		return p.air
	}
	return p.blocks[i]
}

// SetBlock sets the runtime ID of the block at the position passed. Positions
// outside the range are ignored.
func (p *ProtoChunk) SetBlock(x uint8, y int16, z uint8, rid uint32) {
	if i, ok := p.blockIndex(x, y, z); ok {
		p.blocks[i] = rid
	}
}

// Biome ...
func (p *ProtoChunk) Biome(x uint8, y int16, z uint8) uint32 {
	i, ok := p.biomeIndex(x, y, z)
	if !ok {
		return 0
	}
	return p.biomes[i]
}

// SetBiome sets the biome of the 4x4x4 cell holding the position passed.
func (p *ProtoChunk) SetBiome(x uint8, y int16, z uint8, biome uint32) {
	if i, ok := p.biomeIndex(x, y, z); ok {
		p.biomes[i] = biome
	}
}

// BlockLights ...
func (p *ProtoChunk) BlockLights() []LightContainer { return p.blockLight }

// SkyLights ...
func (p *ProtoChunk) SkyLights() []LightContainer { return p.skyLight }

// ResetLight replaces every light container with an Empty container of level
// 0.
func (p *ProtoChunk) ResetLight() {
	n := p.r.Sections()
	p.blockLight, p.skyLight = emptyLights(n, 0), emptyLights(n, 0)
}

// HighestBlock returns the highest y at the column x, z that does not hold
// air, or the minimum of the range minus one if the column is empty.
func (p *ProtoChunk) HighestBlock(x, z uint8) int16 {
	for y := int16(p.r[1]); y >= int16(p.r[0]); y-- {
		if p.Block(x, y, z) != p.air {
			return y
		}
	}
	return int16(p.r[0]) - 1
}

func (p *ProtoChunk) blockIndex(x uint8, y int16, z uint8) (int, bool) {
	if p.blocks == nil || int(y) < p.r[0] || int(y) > p.r[1] {
		return 0, false
	}
	return (int(y)-p.r[0])<<8 | int(z&15)<<4 | int(x&15), true
}

func (p *ProtoChunk) biomeIndex(x uint8, y int16, z uint8) (int, bool) {
	if p.biomes == nil || int(y) < p.r[0] || int(y) > p.r[1] {
		return 0, false
	}
	return ((int(y)-p.r[0])>>2)<<4 | int((z&15)>>2)<<2 | int((x&15)>>2), true
}

func (*ProtoChunk) sealed() {}
