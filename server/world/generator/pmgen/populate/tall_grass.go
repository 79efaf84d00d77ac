package populate

import (
	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

// TallGrass scatters short grass over the grass blocks of a chunk.
type TallGrass struct {
	Amount int
}

func (t TallGrass) Populate(c *gen.Cache, pos chunk.Pos, r *gen.Random) {
	amount := r.Int32N(2) + int32(t.Amount)
	for i := int32(0); i < amount; i++ {
		x, z := blockRange(pos, r)
		if y, ok := highestWorkableBlock(c, x, z, block.Grass); ok {
			c.SetBlockState(cube.Pos{x, y, z}, block.ShortGrass)
		}
	}
}
