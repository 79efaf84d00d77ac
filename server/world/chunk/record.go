package chunk

import (
	"fmt"
	"slices"

	"github.com/dm-vev/adamant/server/block/cube"
)

// Record is the persisted form of a LevelChunk. Its fields only use types both
// the little-endian and big-endian NBT codecs of the providers understand.
type Record struct {
	X      int32  `nbt:"xPos"`
	Z      int32  `nbt:"zPos"`
	Status string `nbt:"Status"`
	MinY   int32  `nbt:"yPos"`
	Air    int32  `nbt:"Air"`

	// LightPopulated is 1 if the light of the chunk was computed by
	// propagation.
	LightPopulated uint8 `nbt:"isLightOn"`

	Sections       []SectionRecord  `nbt:"sections"`
	WorldSurface   []int32          `nbt:"WorldSurface"`
	MotionBlocking []int32          `nbt:"MotionBlocking"`
	BlockEntities  []map[string]any `nbt:"block_entities"`
	Ticks          []TickRecord     `nbt:"block_ticks"`

	Structures []StructureRecord `nbt:"structures"`
	// References holds the packed positions of chunks with structure starts
	// intersecting the chunk.
	References []int64 `nbt:"references"`
}

// StructureRecord is the persisted form of a StructureStart.
type StructureRecord struct {
	Name string  `nbt:"id"`
	Min  []int32 `nbt:"min"`
	Max  []int32 `nbt:"max"`
}

// SectionRecord is the persisted form of a Section and its light.
type SectionRecord struct {
	Blocks []int32 `nbt:"block_states"`
	Biomes []int32 `nbt:"biomes"`

	// BlockLight holds one level per voxel, or is empty if every voxel holds
	// BlockLightLevel.
	BlockLight      []byte `nbt:"BlockLight"`
	BlockLightLevel uint8  `nbt:"BlockLightLevel"`
	SkyLight        []byte `nbt:"SkyLight"`
	SkyLightLevel   uint8  `nbt:"SkyLightLevel"`
}

// TickRecord is the persisted form of a ScheduledTick.
type TickRecord struct {
	X     int32 `nbt:"x"`
	Y     int32 `nbt:"y"`
	Z     int32 `nbt:"z"`
	Block int32 `nbt:"i"`
	Tick  int64 `nbt:"t"`
}

// ToRecord encodes l into its persisted form. Light buffers are copied, so the
// record may outlive modifications to l.
func ToRecord(l *LevelChunk) Record {
	rec := Record{
		X:             l.pos[0],
		Z:             l.pos[1],
		Status:        l.status.String(),
		MinY:          int32(l.r[0]),
		Air:           int32(l.air),
		Sections:      make([]SectionRecord, len(l.sections)),
		BlockEntities: make([]map[string]any, 0, len(l.BlockEntities)),
		Ticks:         make([]TickRecord, 0, len(l.ScheduledTicks)),
	}
	if l.lightPopulated {
		rec.LightPopulated = 1
	}
	for i, s := range l.sections {
		sr := SectionRecord{Blocks: make([]int32, SectionVoxels), Biomes: make([]int32, SectionBiomes)}
		for j, rid := range s.Blocks {
			sr.Blocks[j] = int32(rid)
		}
		for j, b := range s.Biomes {
			sr.Biomes[j] = int32(b)
		}
		sr.BlockLight, sr.BlockLightLevel = lightRecord(l.blockLight, i)
		sr.SkyLight, sr.SkyLightLevel = lightRecord(l.skyLight, i)
		rec.Sections[i] = sr
	}
	rec.WorldSurface, rec.MotionBlocking = heightmapRecord(&l.heightmaps.WorldSurface), heightmapRecord(&l.heightmaps.MotionBlocking)
	for pos, data := range l.BlockEntities {
		m := make(map[string]any, len(data)+3)
		for k, v := range data {
			m[k] = v
		}
		m["x"], m["y"], m["z"] = int32(pos[0]), int32(pos[1]), int32(pos[2])
		rec.BlockEntities = append(rec.BlockEntities, m)
	}
	for _, t := range l.ScheduledTicks {
		rec.Ticks = append(rec.Ticks, TickRecord{X: int32(t.Pos[0]), Y: int32(t.Pos[1]), Z: int32(t.Pos[2]), Block: int32(t.Block), Tick: t.Tick})
	}
	rec.Structures = make([]StructureRecord, 0, len(l.Starts))
	for _, s := range l.Starts {
		rec.Structures = append(rec.Structures, StructureRecord{
			Name: s.Name,
			Min:  []int32{int32(s.Min[0]), int32(s.Min[1]), int32(s.Min[2])},
			Max:  []int32{int32(s.Max[0]), int32(s.Max[1]), int32(s.Max[2])},
		})
	}
	rec.References = make([]int64, 0, len(l.References))
	for _, pos := range l.References {
		rec.References = append(rec.References, pos.Pack())
	}
	return rec
}

// FromRecord decodes a LevelChunk from its persisted form. The record must hold
// sections for exactly the range passed.
func FromRecord(rec Record, r cube.Range) (*LevelChunk, error) {
	status, err := ParseStage(rec.Status)
	if err != nil {
		return nil, err
	}
	if status == StageNone {
		return nil, fmt.Errorf("chunk %v: stored without a stage", Pos{rec.X, rec.Z})
	}
	if int(rec.MinY) != r[0] || len(rec.Sections) != r.Sections() {
		return nil, fmt.Errorf("chunk %v: stored range (min %v, %v sections) does not match %v", Pos{rec.X, rec.Z}, rec.MinY, len(rec.Sections), r)
	}
	l := NewLevel(Pos{rec.X, rec.Z}, r, uint32(rec.Air), status)
	l.lightPopulated = rec.LightPopulated != 0
	for i, sr := range rec.Sections {
		if len(sr.Blocks) != SectionVoxels || len(sr.Biomes) != SectionBiomes {
			return nil, fmt.Errorf("chunk %v: section %v has %v blocks and %v biomes", l.pos, i, len(sr.Blocks), len(sr.Biomes))
		}
		for j, rid := range sr.Blocks {
			l.sections[i].Blocks[j] = uint32(rid)
		}
		for j, b := range sr.Biomes {
			l.sections[i].Biomes[j] = uint32(b)
		}
		if l.blockLight[i], err = lightFromRecord(sr.BlockLight, sr.BlockLightLevel); err != nil {
			return nil, fmt.Errorf("chunk %v: section %v block light: %w", l.pos, i, err)
		}
		if l.skyLight[i], err = lightFromRecord(sr.SkyLight, sr.SkyLightLevel); err != nil {
			return nil, fmt.Errorf("chunk %v: section %v sky light: %w", l.pos, i, err)
		}
	}
	if len(rec.WorldSurface) == 256 && len(rec.MotionBlocking) == 256 {
		for i := range 256 {
			l.heightmaps.WorldSurface[i] = int16(rec.WorldSurface[i])
			l.heightmaps.MotionBlocking[i] = int16(rec.MotionBlocking[i])
		}
	} else {
		l.heightmaps = computeHeightmaps(l.sections, r, l.air, nil)
	}
	for _, m := range rec.BlockEntities {
		x, xok := m["x"].(int32)
		y, yok := m["y"].(int32)
		z, zok := m["z"].(int32)
		if !xok || !yok || !zok {
			continue
		}
		data := make(map[string]any, len(m))
		for k, v := range m {
			if k != "x" && k != "y" && k != "z" {
				data[k] = v
			}
		}
		l.BlockEntities[cube.Pos{int(x), int(y), int(z)}] = data
	}
	for _, t := range rec.Ticks {
		l.ScheduledTicks = append(l.ScheduledTicks, ScheduledTick{Pos: cube.Pos{int(t.X), int(t.Y), int(t.Z)}, Block: uint32(t.Block), Tick: t.Tick})
	}
	for _, s := range rec.Structures {
		if len(s.Min) != 3 || len(s.Max) != 3 {
			return nil, fmt.Errorf("chunk %v: structure %q has a malformed bounding box", l.pos, s.Name)
		}
		l.Starts = append(l.Starts, StructureStart{
			Name: s.Name,
			Min:  cube.Pos{int(s.Min[0]), int(s.Min[1]), int(s.Min[2])},
			Max:  cube.Pos{int(s.Max[0]), int(s.Max[1]), int(s.Max[2])},
		})
	}
	for _, v := range rec.References {
		l.References = append(l.References, Unpack(v))
	}
	return l, nil
}

func lightRecord(containers []LightContainer, i int) ([]byte, uint8) {
	if i >= len(containers) {
		return nil, 0
	}
	c := containers[i]
	if !c.Full() {
		return nil, c.Level()
	}
	data := make([]byte, SectionVoxels)
	copy(data, c.Data())
	return data, 0
}

func lightFromRecord(data []byte, level uint8) (LightContainer, error) {
	switch len(data) {
	case 0:
		return EmptyLight(level), nil
	case SectionVoxels:
		return FullLight(slices.Clone(data)), nil
	}
	return LightContainer{}, fmt.Errorf("light array holds %v levels, expected %v", len(data), SectionVoxels)
}

func heightmapRecord(h *Heightmap) []int32 {
	out := make([]int32, len(h))
	for i, v := range h {
		out[i] = int32(v)
	}
	return out
}
