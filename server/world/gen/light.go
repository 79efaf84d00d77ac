package gen

import (
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
)

// lightChunk computes the light of p according to the lighting mode of ctx.
// Under LightingDefault, light spreads from p into the ProtoChunks around it
// in the window, and light already present in any chunk around it spreads
// into p. Light stops at LevelChunks.
func (c *Cache) lightChunk(p *chunk.ProtoChunk, ctx *Context) {
	switch ctx.Lighting {
	case chunk.LightingFull:
		fillLight(p, chunk.MaxLight)
		return
	case chunk.LightingDark:
		fillLight(p, 0)
		return
	}
	sky := lightPass{c: c, reg: ctx.Registry, get: c.SkyLight, set: c.SetSkyLight}
	block := lightPass{c: c, reg: ctx.Registry, get: c.BlockLight, set: c.SetBlockLight}
	if ctx.Dim.SkyLight {
		sky.seedColumns(p)
	}
	block.seedEmitters(p)
	sky.seedBorders(p)
	block.seedBorders(p)
	sky.spread()
	block.spread()
}

// fillLight replaces every light container of p with a uniform one.
func fillLight(p *chunk.ProtoChunk, level uint8) {
	block, sky := p.BlockLights(), p.SkyLights()
	for i := range block {
		block[i] = chunk.EmptyLight(level)
	}
	for i := range sky {
		sky[i] = chunk.EmptyLight(level)
	}
}

type lightNode struct {
	pos   cube.Pos
	level uint8
}

// lightPass propagates one kind of light through the window by breadth-first
// flood fill. Levels only ever increase: a voxel is lowered by neither seeds
// nor spread.
type lightPass struct {
	c     *Cache
	reg   chunk.BlockRegistry
	get   func(cube.Pos) uint8
	set   func(cube.Pos, uint8) bool
	queue []lightNode
}

var faces = [...]cube.Pos{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}

// raise sets the level at pos if it is higher than the current one and queues
// the position for spreading.
func (l *lightPass) raise(pos cube.Pos, level uint8) {
	if level == 0 || l.get(pos) >= level {
		return
	}
	if l.set(pos, level) {
		l.queue = append(l.queue, lightNode{pos: pos, level: level})
	}
}

// seedColumns lights every column of p from the top of the world down until
// the light is fully absorbed. Sections above the highest light-diffusing block
// are lit uniformly without allocating.
func (l *lightPass) seedColumns(p *chunk.ProtoChunk) {
	r := p.Range()
	maxTop := r[0] - 1
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for y := r[1]; y > maxTop; y-- {
				if l.reg.Opacity(p.Block(x, int16(y), z)) > 0 {
					maxTop = y
					break
				}
			}
		}
	}
	skyLights := p.SkyLights()
	openFrom := r[1] + 1
	for i := range skyLights {
		if minY := r[0] + i<<4; minY > maxTop {
			skyLights[i] = chunk.EmptyLight(chunk.MaxLight)
			openFrom = min(openFrom, minY)
		}
	}

	base := cube.Pos{int(p.Pos()[0]) << 4, 0, int(p.Pos()[1]) << 4}
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			level := int(chunk.MaxLight)
			for y := openFrom - 1; y >= r[0]; y-- {
				if level -= int(l.reg.Opacity(p.Block(x, int16(y), z))); level <= 0 {
					break
				}
				l.raise(base.Add(cube.Pos{int(x), y, int(z)}), uint8(level))
			}
		}
	}
}

// seedEmitters raises the light of every light-emitting block in p.
func (l *lightPass) seedEmitters(p *chunk.ProtoChunk) {
	r := p.Range()
	base := cube.Pos{int(p.Pos()[0]) << 4, 0, int(p.Pos()[1]) << 4}
	for y := r[0]; y <= r[1]; y++ {
		for z := uint8(0); z < 16; z++ {
			for x := uint8(0); x < 16; x++ {
				if e := l.reg.Emission(p.Block(x, int16(y), z)); e > 0 {
					l.raise(base.Add(cube.Pos{int(x), y, int(z)}), e)
				}
			}
		}
	}
}

// seedBorders queues the lit voxels of the chunks around p that touch p, so
// that their light spreads into p.
func (l *lightPass) seedBorders(p *chunk.ProtoChunk) {
	r := p.Range()
	minX, minZ := int(p.Pos()[0])<<4, int(p.Pos()[1])<<4
	edge := func(pos cube.Pos) {
		if !l.c.Contains(chunk.PosFromBlock(pos)) {
			return
		}
		if level := l.get(pos); level > 1 {
			l.queue = append(l.queue, lightNode{pos: pos, level: level})
		}
	}
	for y := r[0]; y <= r[1]; y++ {
		for i := 0; i < 16; i++ {
			edge(cube.Pos{minX - 1, y, minZ + i})
			edge(cube.Pos{minX + 16, y, minZ + i})
			edge(cube.Pos{minX + i, y, minZ - 1})
			edge(cube.Pos{minX + i, y, minZ + 16})
		}
	}
}

// spread floods the queued light through the window. Each step into a block
// costs at least one level, more for blocks that diffuse light.
func (l *lightPass) spread() {
	for head := 0; head < len(l.queue); head++ {
		n := l.queue[head]
		if l.get(n.pos) > n.level {
			// Raised again after being queued; the later entry spreads it.
			continue
		}
		for _, f := range faces {
			next := n.pos.Add(f)
			ch, ok := l.c.Chunk(chunk.PosFromBlock(next))
			if !ok || next.OutOfBounds(ch.Range()) {
				continue
			}
			cost := max(1, int(l.reg.Opacity(l.c.BlockState(next))))
			if level := int(n.level) - cost; level > 0 {
				l.raise(next, uint8(level))
			}
		}
	}
	l.queue = l.queue[:0]
}
