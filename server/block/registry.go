package block

import (
	"fmt"

	"github.com/dm-vev/adamant/server/world/chunk"
)

// State is the static description of a block state, as used by world
// generation and light propagation.
type State struct {
	// Name is the namespaced identifier of the block, such as
	// "minecraft:stone".
	Name string
	// Solid is true if features may be placed on top of the block.
	Solid bool
	// BlocksMotion is true if entities cannot move through the block.
	BlocksMotion bool
	// LightDiffusion is the amount of light levels the block removes from
	// light passing through it.
	LightDiffusion uint8
	// LightEmission is the light level the block emits.
	LightEmission uint8
	// Fluid is the fluid held by the block, if any.
	Fluid chunk.Fluid
}

// Runtime IDs of the states known to the generator. Air is always 0.
const (
	Air uint32 = iota
	Stone
	Bedrock
	Water
	Lava
	Dirt
	Grass
	Sand
	Sandstone
	Gravel
	Snow
	Ice
	Log
	Leaves
	ShortGrass
	Dandelion
	CoalOre
	IronOre
	GoldOre
	DiamondOre
	Glowstone
	Cobblestone
	MossyCobblestone
)

var states = [...]State{
	Air:              {Name: "minecraft:air"},
	Stone:            solid("minecraft:stone"),
	Bedrock:          solid("minecraft:bedrock"),
	Water:            {Name: "minecraft:water", LightDiffusion: 2, Fluid: chunk.Fluid{Kind: chunk.FluidWater, Level: 8, Source: true}},
	Lava:             {Name: "minecraft:lava", LightEmission: 15, Fluid: chunk.Fluid{Kind: chunk.FluidLava, Level: 8, Source: true}},
	Dirt:             solid("minecraft:dirt"),
	Grass:            solid("minecraft:grass_block"),
	Sand:             solid("minecraft:sand"),
	Sandstone:        solid("minecraft:sandstone"),
	Gravel:           solid("minecraft:gravel"),
	Snow:             solid("minecraft:snow"),
	Ice:              {Name: "minecraft:ice", Solid: true, BlocksMotion: true, LightDiffusion: 2},
	Log:              solid("minecraft:oak_log"),
	Leaves:           {Name: "minecraft:oak_leaves", Solid: true, BlocksMotion: true, LightDiffusion: 1},
	ShortGrass:       {Name: "minecraft:short_grass"},
	Dandelion:        {Name: "minecraft:dandelion"},
	CoalOre:          solid("minecraft:coal_ore"),
	IronOre:          solid("minecraft:iron_ore"),
	GoldOre:          solid("minecraft:gold_ore"),
	DiamondOre:       solid("minecraft:diamond_ore"),
	Glowstone:        {Name: "minecraft:glowstone", Solid: true, BlocksMotion: true, LightDiffusion: 15, LightEmission: 15},
	Cobblestone:      solid("minecraft:cobblestone"),
	MossyCobblestone: solid("minecraft:mossy_cobblestone"),
}

func solid(name string) State {
	return State{Name: name, Solid: true, BlocksMotion: true, LightDiffusion: 15}
}

// StateByID returns the State registered for the runtime ID passed.
func StateByID(rid uint32) (State, bool) {
	if int(rid) >= len(states) {
		return State{}, false
	}
	return states[rid], true
}

// StateByName looks up the runtime ID of a block by its name.
func StateByName(name string) (uint32, bool) {
	for rid, s := range states {
		if s.Name == name {
			return uint32(rid), true
		}
	}
	return 0, false
}

// Registry implements chunk.BlockRegistry over the static state table.
// Unknown runtime IDs are treated as opaque, solid blocks.
type Registry struct{}

// Compile time check to make sure Registry implements chunk.BlockRegistry.
var _ chunk.BlockRegistry = Registry{}

// Air ...
func (Registry) Air() uint32 { return Air }

// Solid ...
func (Registry) Solid(rid uint32) bool { return lookup(rid).Solid }

// BlocksMotion ...
func (Registry) BlocksMotion(rid uint32) bool { return lookup(rid).BlocksMotion }

// Opacity ...
func (Registry) Opacity(rid uint32) uint8 { return lookup(rid).LightDiffusion }

// Emission ...
func (Registry) Emission(rid uint32) uint8 { return lookup(rid).LightEmission }

// Fluid ...
func (Registry) Fluid(rid uint32) (chunk.Fluid, bool) {
	f := lookup(rid).Fluid
	return f, f.Kind != chunk.FluidNone
}

func lookup(rid uint32) State {
	if s, ok := StateByID(rid); ok {
		return s
	}
	return solid(fmt.Sprintf("unknown:%d", rid))
}
