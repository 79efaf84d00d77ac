package pmgen

import (
	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/dm-vev/adamant/server/world/generator/pmgen/biome"
	"github.com/dm-vev/adamant/server/world/generator/pmgen/populate"
)

// Generator is a gen.Generator producing rolling terrain with biomes, ores,
// trees and small underground dungeons. It holds no state of its own: noise
// and randomness come from the gen.Context passed to each stage.
type Generator struct {
	// Ores are placed in every chunk during the features stage.
	Ores []populate.OreType
	// DungeonChance is the chance, 1 in DungeonChance, that a chunk holds
	// the start of a dungeon. Dungeons are not placed if it is 0.
	DungeonChance int32
}

// Compile time check to make sure Generator implements gen.Generator.
var _ gen.Generator = (*Generator)(nil)

// New returns a Generator with the default ores and dungeons.
func New() *Generator {
	return &Generator{
		Ores: []populate.OreType{
			{Material: block.CoalOre, Replaces: block.Stone, ClusterCount: 20, ClusterSize: 16, MinHeight: 0, MaxHeight: 128},
			{Material: block.IronOre, Replaces: block.Stone, ClusterCount: 20, ClusterSize: 8, MinHeight: 0, MaxHeight: 64},
			{Material: block.GoldOre, Replaces: block.Stone, ClusterCount: 2, ClusterSize: 8, MinHeight: 0, MaxHeight: 32},
			{Material: block.DiamondOre, Replaces: block.Stone, ClusterCount: 1, ClusterSize: 7, MinHeight: -48, MaxHeight: 16},
			{Material: block.Dirt, Replaces: block.Stone, ClusterCount: 20, ClusterSize: 32, MinHeight: 0, MaxHeight: 128},
			{Material: block.Gravel, Replaces: block.Stone, ClusterCount: 10, ClusterSize: 16, MinHeight: 0, MaxHeight: 128},
		},
		DungeonChance: 24,
	}
}

// Biomes assigns a biome to every 4x4 column of cells of p.
func (g *Generator) Biomes(_ *gen.Cache, p *chunk.ProtoChunk, ctx *gen.Context) {
	baseX, baseZ := int(p.Pos()[0])<<4, int(p.Pos()[1])<<4
	r := p.Range()
	for cx := uint8(0); cx < 16; cx += 4 {
		for cz := uint8(0); cz < 16; cz += 4 {
			b := pickBiome(ctx, baseX+int(cx)+2, baseZ+int(cz)+2)
			for y := r[0]; y <= r[1]; y += 4 {
				p.SetBiome(cx, int16(y), cz, uint32(b.ID))
			}
		}
	}
}

// Noise shapes the terrain of p from 3D noise, bounded by the elevation of the
// biomes around each column, and fills everything below sea level with water.
func (g *Generator) Noise(_ *gen.Cache, p *chunk.ProtoChunk, ctx *gen.Context) {
	baseX, baseZ := int(p.Pos()[0])<<4, int(p.Pos()[1])<<4
	r, settings := p.Range(), ctx.Settings
	biomes := make(map[[2]int]biome.Biome)

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			minHeight, maxHeight := smoothElevation(ctx, biomes, baseX+x, baseZ+z)
			smoothHeight := (maxHeight - minHeight) / 2
			lowest, highest := settings.TerrainBase+int(minHeight)-8, settings.TerrainBase+int(maxHeight)+8

			for y := r[0]; y <= r[1]; y++ {
				var rid uint32
				switch {
				case y == r[0] && settings.Bedrock:
					rid = block.Bedrock
				case y < lowest:
					rid = block.Stone
				case y <= highest && density(ctx, baseX+x, y, baseZ+z, float64(y-settings.TerrainBase), minHeight, smoothHeight) > 0:
					rid = block.Stone
				case y <= settings.SeaLevel:
					rid = block.Water
				default:
					continue
				}
				p.SetBlock(uint8(x), int16(y), uint8(z), rid)
			}
		}
	}
}

// density returns the terrain density at a position. Positive values are
// solid.
func density(ctx *gen.Context, x, y, z int, rel, minHeight, smoothHeight float64) float64 {
	n := ctx.Noise.Terrain.Octave3D(float64(x)/32, float64(y)/32, float64(z)/32, 4, 0.25)
	return n - 1/smoothHeight*(rel-smoothHeight-minHeight)
}

// smoothElevation blends the elevation of the biomes around a column with the
// gaussian kernel of the terrain cache.
func smoothElevation(ctx *gen.Context, cache map[[2]int]biome.Biome, x, z int) (minHeight, maxHeight float64) {
	radius := ctx.Terrain.SmoothRadius
	var minSum, maxSum, weightSum float64
	for sx := -radius; sx <= radius; sx++ {
		for sz := -radius; sz <= radius; sz++ {
			weight := ctx.Terrain.Kernel[sx+radius][sz+radius]
			key := [2]int{x + sx, z + sz}
			b, ok := cache[key]
			if !ok {
				b = pickBiome(ctx, key[0], key[1])
				cache[key] = b
			}
			minSum += float64(b.MinElevation-1) * weight
			maxSum += float64(b.MaxElevation) * weight
			weightSum += weight
		}
	}
	return minSum / weightSum, maxSum / weightSum
}

// pickBiome selects the biome of a column from the climate noise of the
// context. Coordinates are jittered by a hash of the seed so that biome
// borders are not straight.
func pickBiome(ctx *gen.Context, x, z int) biome.Biome {
	hash := int64(x)*2345803 ^ int64(z)*9236449 ^ ctx.Random.Seed
	hash *= hash + 223
	xNoise, zNoise := hash>>20&3, hash>>22&3
	if xNoise == 3 {
		xNoise = 1
	}
	if zNoise == 3 {
		zNoise = 1
	}
	fx, fz := float64(x+int(xNoise)-1), float64(z+int(zNoise)-1)

	if ctx.Noise.Terrain.Octave2D(fx/512, fz/512, 3, 0.5) < -0.3 {
		return biome.Ocean
	}
	if river := ctx.Noise.Detail.Octave2D(fx/384, fz/384, 2, 0.5); river > -0.03 && river < 0.03 {
		return biome.River
	}
	temperature := (ctx.Noise.Temperature.Octave2D(fx/256, fz/256, 2, 0.5) + 1) / 2
	rainfall := (ctx.Noise.Rainfall.Octave2D(fx/256, fz/256, 2, 0.5) + 1) / 2
	return biome.Pick(temperature, rainfall)
}

// Surface replaces the top of the terrain of every column with the ground
// cover of its biome. Only stone is replaced.
func (g *Generator) Surface(_ *gen.Cache, p *chunk.ProtoChunk, _ *gen.Context) {
	r := p.Range()
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			top := r[1]
			for ; top >= r[0]; top-- {
				if rid := p.Block(x, int16(top), z); rid != block.Air && rid != block.Water {
					break
				}
			}
			b, ok := biome.ByID(uint8(p.Biome(x, int16(top), z)))
			if !ok {
				continue
			}
			for i, rid := range b.GroundCover {
				y := int16(top - i)
				if int(y) < r[0] || p.Block(x, y, z) != block.Stone {
					break
				}
				p.SetBlock(x, y, z, rid)
			}
		}
	}
}

// Features places structures, ores and the populators of the biome at the
// centre of p. Features may extend into the chunks around p.
func (g *Generator) Features(c *gen.Cache, p *chunk.ProtoChunk, ctx *gen.Context) {
	placeStructures(c, p, ctx)
	r := ctx.Random.ForChunk(p.Pos(), "features")
	populate.Ore{Types: g.Ores}.Populate(c, p.Pos(), r)

	centre := cube.Pos{int(p.Pos()[0])<<4 + 7, 0, int(p.Pos()[1])<<4 + 7}
	centre[1] = c.HighestBlock(centre[0], centre[2])
	b, ok := biome.ByID(uint8(c.Biome(centre)))
	if !ok {
		return
	}
	for _, populator := range b.Populators {
		populator.Populate(c, p.Pos(), r)
	}
}
