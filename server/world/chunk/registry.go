package chunk

import (
	"fmt"
	"strings"
)

// FluidKind is the type of fluid a block state holds.
type FluidKind uint8

const (
	FluidNone FluidKind = iota
	FluidWater
	FluidLava
)

// Fluid describes the fluid held by a block state.
type Fluid struct {
	Kind FluidKind
	// Level is the fluid depth, 8 for a source or falling fluid and lower
	// for flowing fluid.
	Level uint8
	// Source is true if the fluid is a source block.
	Source bool
}

// BlockRegistry answers the static questions the pipeline asks about block
// states. Implementations must be safe for concurrent use and must not change
// after the pipeline starts.
type BlockRegistry interface {
	// Air returns the runtime ID of air.
	Air() uint32
	// Solid reports if features may be placed on top of the state.
	Solid(state uint32) bool
	// BlocksMotion reports if the state stops entity motion, which decides
	// the MotionBlocking heightmap.
	BlocksMotion(state uint32) bool
	// Opacity returns how much light the state removes when light passes
	// through it, 0-15.
	Opacity(state uint32) uint8
	// Emission returns the block light level the state emits, 0-15.
	Emission(state uint32) uint8
	// Fluid returns the fluid held by the state, if any.
	Fluid(state uint32) (Fluid, bool)
}

// LightingMode selects how chunks are lit during the lighting stage.
type LightingMode uint8

const (
	// LightingDefault computes sky and block light by propagation.
	LightingDefault LightingMode = iota
	// LightingFull lights every voxel at the maximum level.
	LightingFull
	// LightingDark leaves every voxel unlit.
	LightingDark
)

// String ...
func (m LightingMode) String() string {
	switch m {
	case LightingDefault:
		return "default"
	case LightingFull:
		return "full"
	case LightingDark:
		return "dark"
	}
	return fmt.Sprintf("lighting(%d)", uint8(m))
}

// ParseLightingMode parses a lighting mode by name. An empty name yields
// LightingDefault.
func ParseLightingMode(name string) (LightingMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return LightingDefault, nil
	case "full":
		return LightingFull, nil
	case "dark":
		return LightingDark, nil
	}
	return LightingDefault, fmt.Errorf("unknown lighting mode %q", name)
}
