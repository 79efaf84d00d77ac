package biome

import (
	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/world/generator/pmgen/populate"
)

// Biome describes how terrain in a biome is shaped, covered and populated.
type Biome struct {
	// ID is the biome ID stored in chunks.
	ID   uint8
	Name string
	// MinElevation and MaxElevation bound the terrain height of the biome.
	MinElevation, MaxElevation int
	Temperature, Rainfall      float64
	// GroundCover holds the blocks that replace the top of the terrain, from
	// the top down.
	GroundCover []uint32
	// Populators place the features of the biome.
	Populators []populate.Populator
}

var (
	grassy = []uint32{block.Grass, block.Dirt, block.Dirt, block.Dirt, block.Dirt}
	sandy  = []uint32{block.Sand, block.Sand, block.Sandstone, block.Sandstone, block.Sandstone}
	snowy  = []uint32{block.Snow, block.Grass, block.Dirt, block.Dirt, block.Dirt}
	gravel = []uint32{block.Gravel, block.Gravel, block.Gravel, block.Gravel, block.Gravel}
	dirt   = []uint32{block.Dirt, block.Dirt, block.Dirt, block.Dirt, block.Dirt}
)

var (
	Ocean = Biome{ID: 0, Name: "ocean", MinElevation: 46, MaxElevation: 58, Temperature: 0.5, Rainfall: 0.5,
		GroundCover: gravel, Populators: []populate.Populator{populate.TallGrass{Amount: 5}}}
	Plains = Biome{ID: 1, Name: "plains", MinElevation: 63, MaxElevation: 68, Temperature: 0.8, Rainfall: 0.4,
		GroundCover: grassy, Populators: []populate.Populator{populate.TallGrass{Amount: 12}}}
	Desert = Biome{ID: 2, Name: "desert", MinElevation: 63, MaxElevation: 74, Temperature: 2, Rainfall: 0,
		GroundCover: sandy}
	Mountains = Biome{ID: 3, Name: "windswept_hills", MinElevation: 63, MaxElevation: 127, Temperature: 0.4, Rainfall: 0.5,
		GroundCover: grassy}
	Forest = Biome{ID: 4, Name: "forest", MinElevation: 63, MaxElevation: 81, Temperature: 0.7, Rainfall: 0.8,
		GroundCover: grassy, Populators: []populate.Populator{
			populate.Tree{Type: populate.OakTree{}, BaseAmount: 5},
			populate.TallGrass{Amount: 3},
		}}
	Taiga = Biome{ID: 5, Name: "taiga", MinElevation: 63, MaxElevation: 81, Temperature: 0.05, Rainfall: 0.8,
		GroundCover: snowy, Populators: []populate.Populator{
			populate.Tree{Type: populate.SpruceTree{}, BaseAmount: 10},
			populate.TallGrass{Amount: 1},
		}}
	Swamp = Biome{ID: 6, Name: "swamp", MinElevation: 62, MaxElevation: 63, Temperature: 0.8, Rainfall: 0.9,
		GroundCover: grassy}
	River = Biome{ID: 7, Name: "river", MinElevation: 58, MaxElevation: 62, Temperature: 0.5, Rainfall: 0.7,
		GroundCover: dirt, Populators: []populate.Populator{populate.TallGrass{Amount: 5}}}
	IcePlains = Biome{ID: 12, Name: "snowy_plains", MinElevation: 63, MaxElevation: 74, Temperature: 0.05, Rainfall: 0.8,
		GroundCover: snowy, Populators: []populate.Populator{populate.TallGrass{Amount: 5}}}
	SmallMountains = Biome{ID: 20, Name: "windswept_hills_edge", MinElevation: 63, MaxElevation: 97, Temperature: 0.4, Rainfall: 0.5,
		GroundCover: grassy}
	BirchForest = Biome{ID: 27, Name: "birch_forest", MinElevation: 60, MaxElevation: 70, Temperature: 0.6, Rainfall: 0.6,
		GroundCover: grassy, Populators: []populate.Populator{populate.Tree{BaseAmount: 10, Type: populate.BirchTree{}}}}
)

// All holds every biome.
var All = []Biome{Ocean, Plains, Desert, Mountains, Forest, Taiga, Swamp, River, IcePlains, SmallMountains, BirchForest}

// ByID returns the biome with the ID passed.
func ByID(id uint8) (Biome, bool) {
	for _, b := range All {
		if b.ID == id {
			return b, true
		}
	}
	return Biome{}, false
}

// Pick returns the biome suited best for the temperature and rainfall passed,
// both in [0, 1]. Oceans and rivers are not picked by climate.
func Pick(temperature, rainfall float64) Biome {
	switch {
	case temperature < 0.25:
		if rainfall < 0.5 {
			return IcePlains
		}
		return Taiga
	case temperature < 0.45:
		if rainfall < 0.4 {
			return Mountains
		}
		return SmallMountains
	case temperature < 0.7:
		if rainfall < 0.35 {
			return Plains
		}
		if rainfall < 0.65 {
			return BirchForest
		}
		return Forest
	case temperature < 0.85:
		if rainfall < 0.3 {
			return Plains
		}
		if rainfall < 0.8 {
			return Forest
		}
		return Swamp
	}
	if rainfall < 0.5 {
		return Desert
	}
	return Plains
}
