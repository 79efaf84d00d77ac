package chunk

import "github.com/dm-vev/adamant/server/block/cube"

// Heightmap holds, per column indexed by z<<4|x, the y directly above the
// highest block matching the heightmap's predicate. Columns without a match
// hold the minimum of the chunk's range.
type Heightmap [256]int16

// At returns the height stored for the column at x, z.
func (h *Heightmap) At(x, z uint8) int16 {
	return h[int(z&15)<<4|int(x&15)]
}

// Heightmaps holds the heightmaps computed for a LevelChunk.
type Heightmaps struct {
	// WorldSurface tracks the highest non-air block.
	WorldSurface Heightmap
	// MotionBlocking tracks the highest block that blocks motion or holds a
	// fluid.
	MotionBlocking Heightmap
}

// computeHeightmaps scans every column of the sections passed from the top
// down.
func computeHeightmaps(sections []Section, r cube.Range, air uint32, reg BlockRegistry) Heightmaps {
	var h Heightmaps
	for i := range h.WorldSurface {
		h.WorldSurface[i], h.MotionBlocking[i] = int16(r[0]), int16(r[0])
	}
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			col := int(z)<<4 | int(x)
			surface, motion := false, false
			for s := len(sections) - 1; s >= 0 && !(surface && motion); s-- {
				for y := 15; y >= 0 && !(surface && motion); y-- {
					rid := sections[s].Blocks[voxelIndex(x, uint8(y), z)]
					if rid == air {
						continue
					}
					top := int16(r[0] + s<<4 + y + 1)
					if !surface {
						h.WorldSurface[col], surface = top, true
					}
					if !motion && reg != nil {
						_, fluid := reg.Fluid(rid)
						if reg.BlocksMotion(rid) || fluid {
							h.MotionBlocking[col], motion = top, true
						}
					}
				}
			}
		}
	}
	return h
}
