package pmgen

import (
	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

const dungeonName = "dungeon"

// StructureStarts decides whether a dungeon starts in p. The dungeon is
// recorded as a structure start and placed during the features stage.
func (g *Generator) StructureStarts(_ *gen.Cache, p *chunk.ProtoChunk, ctx *gen.Context) {
	if g.DungeonChance <= 0 {
		return
	}
	r := ctx.Random.ForChunk(p.Pos(), "structures")
	if r.Int32N(g.DungeonChance) != 0 {
		return
	}
	x, z := int(p.Pos()[0])<<4+int(r.Int32N(16)), int(p.Pos()[1])<<4+int(r.Int32N(16))
	y := int(r.Range(int32(p.Range()[0]+8), int32(min(40, p.Range()[1]-8))))
	rx, rz := 2+int(r.Int32N(2)), 2+int(r.Int32N(2))
	p.Starts = append(p.Starts, chunk.StructureStart{
		Name: dungeonName,
		Min:  cube.Pos{x - rx - 1, y - 1, z - rz - 1},
		Max:  cube.Pos{x + rx + 1, y + 4, z + rz + 1},
	})
}

// placeStructures places the parts of the structures referenced by p that
// fall into p. Structures spanning several chunks are completed by the
// features stage of each chunk they intersect.
func placeStructures(c *gen.Cache, p *chunk.ProtoChunk, ctx *gen.Context) {
	r := ctx.Random.ForChunk(p.Pos(), "dungeon")
	for _, ref := range p.References {
		for _, start := range c.StructureStarts(ref) {
			if start.Intersects(p.Pos()) {
				placeDungeon(c, p.Pos(), start, r)
			}
		}
	}
}

// placeDungeon carves the part of a cobblestone room spanning the bounding
// box of start that lies within the chunk passed.
func placeDungeon(c *gen.Cache, at chunk.Pos, start chunk.StructureStart, r *gen.Random) {
	if start.Name != dungeonName {
		return
	}
	minX, minZ := int(at[0])<<4, int(at[1])<<4
	for x := max(start.Min[0], minX); x <= min(start.Max[0], minX+15); x++ {
		for y := start.Min[1]; y <= start.Max[1]; y++ {
			for z := max(start.Min[2], minZ); z <= min(start.Max[2], minZ+15); z++ {
				pos := cube.Pos{x, y, z}
				wall := x == start.Min[0] || x == start.Max[0] || y == start.Min[1] || y == start.Max[1] || z == start.Min[2] || z == start.Max[2]
				switch {
				case !wall:
					c.SetBlockState(pos, block.Air)
				case c.BlockState(pos) == block.Air || c.BlockState(pos) == block.Water:
					// Walls are not built into open caves or water.
				case r.Int32N(4) == 0:
					c.SetBlockState(pos, block.MossyCobblestone)
				default:
					c.SetBlockState(pos, block.Cobblestone)
				}
			}
		}
	}
}
