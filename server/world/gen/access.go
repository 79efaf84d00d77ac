package gen

import (
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
)

// locate resolves the chunk holding the block position passed and the
// chunk-relative coordinates of the position within it. Positions outside the
// window or the height range of their chunk are not resolved.
func (c *Cache) locate(pos cube.Pos) (ch chunk.Chunk, x uint8, y int16, z uint8, ok bool) {
	ch, ok = c.Chunk(chunk.PosFromBlock(pos))
	if !ok || pos.OutOfBounds(ch.Range()) {
		return nil, 0, 0, 0, false
	}
	return ch, uint8(pos[0] & 15), int16(pos[1]), uint8(pos[2] & 15), true
}

// BlockState returns the runtime ID of the block at pos. Positions outside the
// window or the height range hold air.
func (c *Cache) BlockState(pos cube.Pos) uint32 {
	ch, x, y, z, ok := c.locate(pos)
	if !ok {
		return c.reg.Air()
	}
	return ch.Block(x, y, z)
}

// FluidState returns the fluid held by the block at pos together with the
// block's runtime ID.
func (c *Cache) FluidState(pos cube.Pos) (chunk.Fluid, uint32) {
	rid := c.BlockState(pos)
	f, _ := c.reg.Fluid(rid)
	return f, rid
}

// SetBlockState sets the block at pos. The block is only set if the chunk
// holding pos is a ProtoChunk within the write radius of the stage being
// advanced and pos lies within its height range; otherwise SetBlockState
// returns false and leaves every chunk untouched.
func (c *Cache) SetBlockState(pos cube.Pos, rid uint32) bool {
	ch, x, y, z, ok := c.locate(pos)
	if !ok || !c.writable(ch) {
		return false
	}
	ch.(*chunk.ProtoChunk).SetBlock(x, y, z, rid)
	return true
}

// Writable reports if SetBlockState would succeed at pos.
func (c *Cache) Writable(pos cube.Pos) bool {
	ch, _, _, _, ok := c.locate(pos)
	return ok && c.writable(ch)
}

// Biome returns the biome at pos, or 0 if pos lies outside the window or the
// height range.
func (c *Cache) Biome(pos cube.Pos) uint32 {
	ch, x, y, z, ok := c.locate(pos)
	if !ok {
		return 0
	}
	return ch.Biome(x, y, z)
}

// HighestBlock returns the y of the highest non-air block in the column at x,
// z. Empty columns return the minimum of the height range minus one, columns
// outside the window return 0.
func (c *Cache) HighestBlock(x, z int) int {
	ch, ok := c.Chunk(chunk.PosFromBlock(cube.Pos{x, 0, z}))
	if !ok {
		return 0
	}
	r, air := ch.Range(), c.reg.Air()
	for y := r[1]; y >= r[0]; y-- {
		if ch.Block(uint8(x&15), int16(y), uint8(z&15)) != air {
			return y
		}
	}
	return r[0] - 1
}

// StructureStarts returns the structure starts recorded in the chunk at pos,
// or nil if the chunk is not in the window.
func (c *Cache) StructureStarts(pos chunk.Pos) []chunk.StructureStart {
	ch, ok := c.Chunk(pos)
	if !ok {
		return nil
	}
	switch ch := ch.(type) {
	case *chunk.ProtoChunk:
		return ch.Starts
	case *chunk.LevelChunk:
		return ch.Starts
	}
	return nil
}

// writable reports if ch may be modified by the stage being advanced.
func (c *Cache) writable(ch chunk.Chunk) bool {
	if _, ok := ch.(*chunk.ProtoChunk); !ok {
		return false
	}
	return ch.Pos().Distance(c.Centre()) <= c.stage.WriteRadius()
}

// BlockLight returns the block light level at pos.
func (c *Cache) BlockLight(pos cube.Pos) uint8 {
	return c.light(pos, chunk.Chunk.BlockLights)
}

// SkyLight returns the sky light level at pos.
func (c *Cache) SkyLight(pos cube.Pos) uint8 {
	return c.light(pos, chunk.Chunk.SkyLights)
}

// SetBlockLight sets the block light level at pos. It returns false if pos
// lies outside the window or the height range, or in a chunk that
// SetBlockState may not write to.
func (c *Cache) SetBlockLight(pos cube.Pos, level uint8) bool {
	return c.setLight(pos, level, chunk.Chunk.BlockLights)
}

// SetSkyLight sets the sky light level at pos. Like SetBlockLight, it only
// writes to ProtoChunks within the write radius. The light of LevelChunks is
// final and never changed.
func (c *Cache) SetSkyLight(pos cube.Pos, level uint8) bool {
	return c.setLight(pos, level, chunk.Chunk.SkyLights)
}

func (c *Cache) light(pos cube.Pos, containers func(chunk.Chunk) []chunk.LightContainer) uint8 {
	ch, x, _, z, ok := c.locate(pos)
	if !ok {
		return 0
	}
	r := ch.Range()
	i := chunk.SectionIndex(r, pos[1])
	lights := containers(ch)
	if i < 0 || i >= len(lights) {
		return 0
	}
	return lights[i].Get(x, chunk.SectionY(r, pos[1]), z)
}

func (c *Cache) setLight(pos cube.Pos, level uint8, containers func(chunk.Chunk) []chunk.LightContainer) bool {
	ch, x, _, z, ok := c.locate(pos)
	if !ok || !c.writable(ch) {
		return false
	}
	r := ch.Range()
	i := chunk.SectionIndex(r, pos[1])
	lights := containers(ch)
	if i < 0 || i >= len(lights) {
		return false
	}
	lights[i].Set(x, chunk.SectionY(r, pos[1]), z, level)
	return true
}
