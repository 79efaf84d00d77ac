package chunk

import (
	"fmt"
	"strings"
)

// Stage is a milestone in the generation of a chunk. Stages are totally
// ordered: a chunk only ever moves to a later Stage, one step at a time.
type Stage uint8

const (
	// StageNone is a sentinel that orders before every real stage. A
	// ProtoChunk whose payload was moved out by Upgrade reports StageNone.
	StageNone Stage = iota
	StageEmpty
	StageBiomes
	StageStructureStart
	StageStructureReferences
	StageNoise
	StageSurface
	StageFeatures
	StageLighting
	StageFull
)

// Stages holds every real stage in generation order.
var Stages = [...]Stage{
	StageEmpty,
	StageBiomes,
	StageStructureStart,
	StageStructureReferences,
	StageNoise,
	StageSurface,
	StageFeatures,
	StageLighting,
	StageFull,
}

type stageRule struct {
	name   string
	deps   []Stage
	radius int
	write  int
}

var stageRules = [...]stageRule{
	StageNone:                {name: "none"},
	StageEmpty:               {name: "empty"},
	StageBiomes:              {name: "biomes", deps: []Stage{StageEmpty}},
	StageStructureStart:      {name: "structure_starts", deps: []Stage{StageBiomes}},
	StageStructureReferences: {name: "structure_references", deps: []Stage{StageStructureStart}, radius: 1},
	StageNoise:               {name: "noise", deps: []Stage{StageStructureReferences}},
	StageSurface:             {name: "surface", deps: []Stage{StageNoise}},
	StageFeatures:            {name: "features", deps: []Stage{StageSurface}, radius: 1, write: 1},
	StageLighting:            {name: "lighting", deps: []Stage{StageFeatures}, radius: 1, write: 1},
	StageFull:                {name: "full", deps: []Stage{StageLighting}, radius: 1},
}

func (s Stage) rule() stageRule {
	if int(s) >= len(stageRules) {
		panic(fmt.Sprintf("chunk: invalid stage %d", uint8(s)))
	}
	return stageRules[s]
}

// DirectDependencies returns the stages that chunks around a chunk must have
// reached before the chunk may advance to s.
func (s Stage) DirectDependencies() []Stage {
	return s.rule().deps
}

// DirectRadius returns the number of rings of neighbouring chunks that must
// have reached the dependency of s before a chunk may advance to s.
func (s Stage) DirectRadius() int {
	return s.rule().radius
}

// WriteRadius returns the number of rings of neighbouring chunks that the
// algorithm of s may write into.
func (s Stage) WriteRadius() int {
	return s.rule().write
}

// CacheRadius returns the radius of the generation window needed to advance a
// chunk to s: the larger of the read and the write radius.
func (s Stage) CacheRadius() int {
	return max(s.DirectRadius(), s.WriteRadius())
}

// Next returns the stage following s. Next of StageFull is StageFull.
func (s Stage) Next() Stage {
	if s >= StageFull {
		return StageFull
	}
	return s + 1
}

// Prev returns the stage directly preceding s. Prev of StageEmpty and
// StageNone is StageNone.
func (s Stage) Prev() Stage {
	if s <= StageEmpty {
		return StageNone
	}
	return s - 1
}

// String returns the persisted name of the stage, such as "features".
func (s Stage) String() string {
	if int(s) >= len(stageRules) {
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
	return stageRules[s].name
}

// ParseStage parses a stage from its name as returned by Stage.String. Names
// are matched case-insensitively.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, r := range stageRules {
		if r.name == name {
			return Stage(i), nil
		}
	}
	return StageNone, fmt.Errorf("unknown chunk stage %q", name)
}
