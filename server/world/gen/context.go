package gen

import (
	"math"
	"strings"

	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
)

// Dimension holds the constants of a dimension that generation depends on.
type Dimension struct {
	Name string
	// Range is the height range of chunks in the dimension.
	Range cube.Range
	// SkyLight is true if the dimension receives light from the sky.
	SkyLight bool
}

var (
	// Overworld is the default dimension.
	Overworld = Dimension{Name: "overworld", Range: cube.Range{-64, 319}, SkyLight: true}
	// Nether has no sky light and a reduced height.
	Nether = Dimension{Name: "nether", Range: cube.Range{0, 127}}
	// End has no sky light.
	End = Dimension{Name: "end", Range: cube.Range{0, 255}}
)

// DimensionByName returns the dimension with the name passed.
func DimensionByName(name string) (Dimension, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Overworld.Name:
		return Overworld, true
	case Nether.Name:
		return Nether, true
	case End.Name:
		return End, true
	}
	return Dimension{}, false
}

// Settings are the tunables of terrain generation in a dimension.
type Settings struct {
	// SeaLevel is the highest y filled with water where terrain is lower.
	SeaLevel int
	// TerrainBase is the y that the terrain height offsets returned by
	// biomes are relative to.
	TerrainBase int
	// Bedrock is true if the lowest layer of the dimension is bedrock.
	Bedrock bool
}

// DefaultSettings returns the settings used for the dimension passed.
func DefaultSettings(dim Dimension) Settings {
	if dim.Name == Overworld.Name {
		return Settings{SeaLevel: 62, TerrainBase: 0, Bedrock: true}
	}
	return Settings{SeaLevel: dim.Range[0] + 32, TerrainBase: dim.Range[0], Bedrock: true}
}

// TerrainCache holds tables derived once and shared by every generation job.
// A TerrainCache must not be modified after it is created.
type TerrainCache struct {
	// SmoothRadius is the radius in blocks over which terrain heights of
	// neighbouring columns are blended.
	SmoothRadius int
	// Kernel holds the gaussian weights used for blending, indexed by
	// [dx+SmoothRadius][dz+SmoothRadius].
	Kernel [][]float64
}

// NewTerrainCache computes a TerrainCache with a blending kernel of the radius
// passed.
func NewTerrainCache(radius int) *TerrainCache {
	t := &TerrainCache{SmoothRadius: radius, Kernel: make([][]float64, 2*radius+1)}
	for x := -radius; x <= radius; x++ {
		t.Kernel[x+radius] = make([]float64, 2*radius+1)
		for z := -radius; z <= radius; z++ {
			t.Kernel[x+radius][z+radius] = 4 * math.Exp(-float64(x*x+z*z)/8)
		}
	}
	return t
}

// Generator implements the algorithms of the generation stages that depend on
// the kind of world generated. Every method operates on the chunk p, which is
// the centre of c, and may read and write the rest of c as far as the stage
// permits. Methods must not keep references to c or p.
type Generator interface {
	// Biomes fills in the biomes of p.
	Biomes(c *Cache, p *chunk.ProtoChunk, ctx *Context)
	// StructureStarts decides which structures start in p.
	StructureStarts(c *Cache, p *chunk.ProtoChunk, ctx *Context)
	// Noise shapes the terrain of p.
	Noise(c *Cache, p *chunk.ProtoChunk, ctx *Context)
	// Surface replaces the top layers of the terrain of p.
	Surface(c *Cache, p *chunk.ProtoChunk, ctx *Context)
	// Features places features such as ores and trees in p and the chunks
	// around it.
	Features(c *Cache, p *chunk.ProtoChunk, ctx *Context)
}

// NopGenerator is a Generator that leaves chunks empty.
type NopGenerator struct{}

func (NopGenerator) Biomes(*Cache, *chunk.ProtoChunk, *Context)          {}
func (NopGenerator) StructureStarts(*Cache, *chunk.ProtoChunk, *Context) {}
func (NopGenerator) Noise(*Cache, *chunk.ProtoChunk, *Context)           {}
func (NopGenerator) Surface(*Cache, *chunk.ProtoChunk, *Context)         {}
func (NopGenerator) Features(*Cache, *chunk.ProtoChunk, *Context)        {}

// Context bundles everything Advance reads besides the cache itself. A
// Context is shared by concurrent generation jobs and is never modified by
// them.
type Context struct {
	Lighting  chunk.LightingMode
	Registry  chunk.BlockRegistry
	Settings  Settings
	Random    RandomConfig
	Terrain   *TerrainCache
	Noise     *NoiseRouter
	Dim       Dimension
	Generator Generator
}

// NewContext returns a Context for the seed and dimension passed, with default
// settings and tables.
func NewContext(seed int64, dim Dimension, reg chunk.BlockRegistry, g Generator, mode chunk.LightingMode) *Context {
	if g == nil {
		g = NopGenerator{}
	}
	return &Context{
		Lighting:  mode,
		Registry:  reg,
		Settings:  DefaultSettings(dim),
		Random:    RandomConfig{Seed: seed},
		Terrain:   NewTerrainCache(2),
		Noise:     NewNoiseRouter(seed),
		Dim:       dim,
		Generator: g,
	}
}
