package chunk

import "fmt"

// Upgrade finalises p into a LevelChunk. The block and biome arrays of p are
// copied into sections, while its light containers are moved without copying.
// The resulting chunk keeps the stage p had reached as its status, is marked
// dirty, and is flagged light-populated only if p reached StageLighting under
// LightingDefault.
//
// Upgrade takes ownership of the payload of p: afterwards p holds no data and
// reports StageNone. If Upgrade panics, p is left unchanged. Upgrading the
// same ProtoChunk twice panics.
func Upgrade(p *ProtoChunk, mode LightingMode, reg BlockRegistry) *LevelChunk {
	return upgrade(p, p.stage, mode, reg)
}

// Finalise upgrades p, which must have reached StageLighting, into a
// LevelChunk at StageFull. Like Upgrade, it leaves p unchanged if it panics.
func Finalise(p *ProtoChunk, mode LightingMode, reg BlockRegistry) *LevelChunk {
	if p.stage != StageLighting && p.stage != StageFull {
		panic(fmt.Sprintf("chunk %v: finalise at %v, need %v", p.pos, p.stage, StageLighting))
	}
	return upgrade(p, StageFull, mode, reg)
}

func upgrade(p *ProtoChunk, status Stage, mode LightingMode, reg BlockRegistry) *LevelChunk {
	if p.stage == StageNone || p.blocks == nil {
		panic("chunk: upgrade of a proto chunk that was already consumed")
	}
	n := p.r.Sections()
	l := &LevelChunk{
		pos:            p.pos,
		status:         status,
		r:              p.r,
		air:            p.air,
		sections:       make([]Section, n),
		lightPopulated: status >= StageLighting && mode == LightingDefault,
	}
	for i := range l.sections {
		copy(l.sections[i].Blocks[:], p.blocks[i*SectionVoxels:(i+1)*SectionVoxels])
		copy(l.sections[i].Biomes[:], p.biomes[i*SectionBiomes:(i+1)*SectionBiomes])
	}
	l.heightmaps = computeHeightmaps(l.sections, l.r, l.air, reg)

	// Nothing below may fail: p is only emptied once l is complete.
	l.blockLight, l.skyLight = p.blockLight, p.skyLight
	l.BlockEntities, l.ScheduledTicks = p.BlockEntities, p.ScheduledTicks
	l.Starts, l.References = p.Starts, p.References
	if l.BlockEntities == nil {
		l.BlockEntities = BlockEntities{}
	}
	p.blocks, p.biomes, p.blockLight, p.skyLight = nil, nil, nil, nil
	p.BlockEntities, p.ScheduledTicks, p.Starts, p.References = nil, nil, nil, nil
	p.stage = StageNone

	l.MarkDirty()
	return l
}
