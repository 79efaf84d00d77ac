package populate

import (
	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

// Tree grows trees of a single type on the dirt and grass of a chunk.
type Tree struct {
	BaseAmount int
	Type       TreeType
}

func (t Tree) Populate(c *gen.Cache, pos chunk.Pos, r *gen.Random) {
	amount := r.Int32N(2) + int32(t.BaseAmount)
	for i := int32(0); i < amount; i++ {
		x, z := blockRange(pos, r)
		if y, ok := highestWorkableBlock(c, x, z, block.Dirt, block.Grass); ok {
			treeType := t.Type
			if birch, ok := treeType.(BirchTree); ok && r.Int32N(39) == 0 {
				birch.Super = true
				treeType = birch
			}
			treeType.Grow(c, cube.Pos{x, y, z}, r)
		}
	}
}

// TreeType grows a single tree with its trunk starting at pos.
type TreeType interface {
	Grow(c *gen.Cache, pos cube.Pos, r *gen.Random)
}

// SpruceTree is a tall, cone shaped tree.
type SpruceTree struct{}

func (SpruceTree) Grow(c *gen.Cache, pos cube.Pos, r *gen.Random) {
	if !canGrow(c, pos, 10) {
		return
	}
	treeHeight := int(r.Int32N(4) + 6)

	topSize := treeHeight - int(1+r.Int32N(2))
	lr := 2 + int(r.Int32N(2))

	trunk(c, pos, treeHeight-int(r.Int32N(3)))

	radius := int(r.Int32N(2))
	minR, maxR := 0, 1

	for y := 0; y <= topSize; y++ {
		yy := pos[1] + treeHeight - y
		for x := pos[0] - radius; x <= pos[0]+radius; x++ {
			xOff := abs(x - pos[0])
			for z := pos[2] - radius; z <= pos[2]+radius; z++ {
				zOff := abs(z - pos[2])
				if xOff == radius && zOff == radius && radius > 0 {
					continue
				}
				leaf(c, cube.Pos{x, yy, z})
			}
		}

		if radius >= maxR {
			radius = minR
			minR = 1
			if maxR++; maxR > lr {
				maxR = lr
			}
		} else {
			radius++
		}
	}
}

// OakTree is a small tree with a rounded top.
type OakTree struct{}

func (OakTree) Grow(c *gen.Cache, pos cube.Pos, r *gen.Random) {
	if !canGrow(c, pos, 7) {
		return
	}
	treeHeight := int(r.Int32N(3)) + 4
	basicTop(c, pos, r, treeHeight)
	trunk(c, pos, treeHeight-1)
}

// BirchTree is like an OakTree, but taller. Super birch trees are taller
// still.
type BirchTree struct {
	Super bool
}

func (b BirchTree) Grow(c *gen.Cache, pos cube.Pos, r *gen.Random) {
	if !canGrow(c, pos, 7) {
		return
	}
	treeHeight := int(r.Int32N(3)) + 5
	if b.Super {
		treeHeight += 5
	}
	basicTop(c, pos, r, treeHeight)
	trunk(c, pos, treeHeight-1)
}

func basicTop(c *gen.Cache, pos cube.Pos, r *gen.Random, treeHeight int) {
	for yy := pos[1] - 3 + treeHeight; yy <= pos[1]+treeHeight; yy++ {
		yOff := yy - (pos[1] + treeHeight)
		mid := 1 - yOff/2
		for xx := pos[0] - mid; xx <= pos[0]+mid; xx++ {
			xOff := abs(xx - pos[0])
			for zz := pos[2] - mid; zz <= pos[2]+mid; zz++ {
				zOff := abs(zz - pos[2])
				if xOff == mid && zOff == mid && (yOff == 0 || r.Int32N(2) == 0) {
					continue
				}
				leaf(c, cube.Pos{xx, yy, zz})
			}
		}
	}
}

// leaf places leaves at pos unless a solid block is already there.
func leaf(c *gen.Cache, pos cube.Pos) {
	if _, ok := overridable[c.BlockState(pos)]; ok {
		c.SetBlockState(pos, block.Leaves)
	}
}

func trunk(c *gen.Cache, pos cube.Pos, trunkHeight int) {
	c.SetBlockState(pos.Sub(cube.Pos{0, 1}), block.Dirt)
	for y := 0; y < trunkHeight; y++ {
		p := pos.Add(cube.Pos{0, y})
		if _, ok := overridable[c.BlockState(p)]; ok {
			c.SetBlockState(p, block.Log)
		}
	}
}

// canGrow checks if the space a tree of the height passed would take up is
// free and lies within chunks the cache allows writing to.
func canGrow(c *gen.Cache, pos cube.Pos, treeHeight int) bool {
	radiusToCheck := 0
	for yy := 0; yy < treeHeight+3; yy++ {
		if yy == 1 || yy == treeHeight {
			radiusToCheck++
		}
		for xx := -radiusToCheck; xx <= radiusToCheck; xx++ {
			for zz := -radiusToCheck; zz <= radiusToCheck; zz++ {
				p := cube.Pos{pos[0] + xx, pos[1] + yy, pos[2] + zz}
				if _, ok := overridable[c.BlockState(p)]; !ok {
					return false
				}
				if !c.Writable(p) {
					return false
				}
			}
		}
	}
	return true
}
