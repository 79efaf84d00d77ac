package populate

import (
	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

// blockRange returns a random block coordinate within the chunk at pos.
func blockRange(pos chunk.Pos, r *gen.Random) (x, z int) {
	return int(r.Range(pos[0]<<4, pos[0]<<4+15)), int(r.Range(pos[1]<<4, pos[1]<<4+15))
}

// highestWorkableBlock returns the y directly above the highest block in the
// column at x, z if that block is one of the ground blocks passed.
func highestWorkableBlock(c *gen.Cache, x, z int, ground ...uint32) (int, bool) {
	y := c.HighestBlock(x, z)
	below := c.BlockState(cube.Pos{x, y, z})
	for _, g := range ground {
		if below == g {
			return y + 1, true
		}
	}
	return 0, false
}

var overridable = map[uint32]struct{}{
	block.Air:    {},
	block.Leaves: {},
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
