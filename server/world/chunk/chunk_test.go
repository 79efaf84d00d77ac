package chunk

import (
	"testing"

	"github.com/dm-vev/adamant/server/block/cube"
)

// testRegistry treats 0 as air and every other state as a solid, opaque block,
// except 9 which holds water.
type testRegistry struct{}

func (testRegistry) Air() uint32                { return 0 }
func (testRegistry) Solid(s uint32) bool        { return s != 0 && s != 9 }
func (testRegistry) BlocksMotion(s uint32) bool { return s != 0 && s != 9 }
func (testRegistry) Emission(uint32) uint8      { return 0 }

func (testRegistry) Opacity(s uint32) uint8 {
	if s == 0 {
		return 0
	}
	return 15
}

func (testRegistry) Fluid(s uint32) (Fluid, bool) {
	return Fluid{Kind: FluidWater, Level: 8, Source: true}, s == 9
}

var testRange = cube.Range{-64, 319}

func TestStageTablesAreMonotonic(t *testing.T) {
	prev := StageNone
	for _, s := range Stages {
		if s <= prev {
			t.Fatalf("stage %v does not order after %v", s, prev)
		}
		if s.Prev() != prev && s != StageEmpty {
			t.Fatalf("Prev of %v = %v, expected %v", s, s.Prev(), prev)
		}
		for _, dep := range s.DirectDependencies() {
			if dep >= s {
				t.Fatalf("stage %v depends on later stage %v", s, dep)
			}
		}
		parsed, err := ParseStage(s.String())
		if err != nil || parsed != s {
			t.Fatalf("ParseStage(%q) = %v, %v", s.String(), parsed, err)
		}
		prev = s
	}
	if StageBiomes.DirectRadius() != 0 || StageFeatures.DirectRadius() != 1 || StageFeatures.WriteRadius() != 1 {
		t.Fatalf("unexpected radii for biomes/features")
	}
	if StageFull.WriteRadius() != 0 || StageFull.Next() != StageFull {
		t.Fatalf("full must not write into neighbours and must be terminal")
	}
}

func TestProtoStageNeverDecreases(t *testing.T) {
	p := NewProto(Pos{0, 0}, testRange, 0)
	p.SetStage(StageNoise)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic lowering stage")
		}
		if p.Stage() != StageNoise {
			t.Fatalf("stage changed to %v after rejected decrease", p.Stage())
		}
	}()
	p.SetStage(StageBiomes)
}

func TestLightContainerPromotion(t *testing.T) {
	c := EmptyLight(15)
	c.Set(1, 2, 3, 15)
	if c.Full() {
		t.Fatalf("writing the uniform level must not allocate")
	}
	c.Set(1, 2, 3, 4)
	if !c.Full() || len(c.Data()) != SectionVoxels {
		t.Fatalf("expected full container of %v levels", SectionVoxels)
	}
	if c.Get(1, 2, 3) != 4 || c.Get(0, 0, 0) != 15 {
		t.Fatalf("unexpected levels after promotion: %v %v", c.Get(1, 2, 3), c.Get(0, 0, 0))
	}
	if _, ok := c.Uniform(); ok {
		t.Fatalf("container with two levels reported uniform")
	}
}

func TestUpgradeRoundTrip(t *testing.T) {
	p := NewProto(Pos{3, -2}, testRange, 0)
	value := func(x uint8, y int16, z uint8) uint32 {
		return uint32(int(x)*31+int(y)*7+int(z)*13) % 11
	}
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for y := int16(testRange[0]); y <= int16(testRange[1]); y += 5 {
				p.SetBlock(x, y, z, value(x, y, z))
			}
			p.SetBiome(x, 70, z, uint32(x/4+z/4*4))
		}
	}
	p.BlockLights()[4].Set(1, 1, 1, 9)
	light := p.BlockLights()[4].Data()
	p.SetStage(StageLighting)

	l := Upgrade(p, LightingDefault, testRegistry{})
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for y := int16(testRange[0]); y <= int16(testRange[1]); y += 5 {
				if got, want := l.Block(x, y, z), value(x, y, z); got != want {
					t.Fatalf("block at %v %v %v = %v, expected %v", x, y, z, got, want)
				}
			}
			if got := l.Biome(x, 70, z); got != uint32(x/4+z/4*4) {
				t.Fatalf("biome at %v %v = %v", x, z, got)
			}
		}
	}
	if &l.BlockLights()[4].Data()[0] != &light[0] {
		t.Fatalf("light buffers were copied instead of moved")
	}
	if !l.LightPopulated() || !l.Dirty() || l.Stage() != StageLighting {
		t.Fatalf("unexpected flags: populated=%v dirty=%v stage=%v", l.LightPopulated(), l.Dirty(), l.Stage())
	}
	if p.Stage() != StageNone || p.BlockLights() != nil {
		t.Fatalf("proto was not emptied by upgrade")
	}
}

func TestUpgradeLightPopulatedRequiresDefaultMode(t *testing.T) {
	p := NewProto(Pos{}, testRange, 0)
	p.SetStage(StageFull)
	if Upgrade(p, LightingFull, testRegistry{}).LightPopulated() {
		t.Fatalf("chunk lit in full mode must not be flagged populated")
	}
	p = NewProto(Pos{}, testRange, 0)
	p.SetStage(StageFeatures)
	if Upgrade(p, LightingDefault, testRegistry{}).LightPopulated() {
		t.Fatalf("chunk before lighting must not be flagged populated")
	}
}

func TestHeightmaps(t *testing.T) {
	p := NewProto(Pos{}, testRange, 0)
	p.SetBlock(2, 60, 3, 1)
	p.SetBlock(2, 64, 3, 9)
	p.SetStage(StageFull)
	l := Upgrade(p, LightingDefault, testRegistry{})
	h := l.Heightmaps()
	if got := h.WorldSurface.At(2, 3); got != 65 {
		t.Fatalf("world surface = %v, expected 65", got)
	}
	if got := h.MotionBlocking.At(2, 3); got != 65 {
		t.Fatalf("motion blocking = %v, expected 65 for water", got)
	}
	if got := h.WorldSurface.At(0, 0); got != int16(testRange[0]) {
		t.Fatalf("empty column = %v, expected %v", got, testRange[0])
	}
}

func TestNeedsRelight(t *testing.T) {
	newFull := func(sky uint8) *LevelChunk {
		l := NewLevel(Pos{}, testRange, 0, StageFull)
		n := testRange.Sections()
		l.SetLights(emptyLights(n, 0), emptyLights(n, sky))
		return l
	}
	for _, sky := range []uint8{0, 15} {
		l := newFull(sky)
		if !NeedsRelight(l, LightingDefault) {
			t.Fatalf("uniform %v light not flagged", sky)
		}
		if !NeedsRelight(l, LightingDefault) {
			t.Fatalf("heuristic is not stable across calls")
		}
		if NeedsRelight(l, LightingFull) || NeedsRelight(l, LightingDark) {
			t.Fatalf("relight flagged outside default lighting")
		}
	}

	l := newFull(15)
	l.SkyLights()[3].Set(4, 4, 4, 7)
	if NeedsRelight(l, LightingDefault) {
		t.Fatalf("non-uniform light flagged for relight")
	}

	l = newFull(7)
	if NeedsRelight(l, LightingDefault) {
		t.Fatalf("uniform level 7 is not a trivial fill")
	}

	l = newFull(0)
	l.SetLightPopulated(true)
	if NeedsRelight(l, LightingDefault) {
		t.Fatalf("light populated chunk flagged for relight")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	p := NewProto(Pos{-7, 12}, testRange, 0)
	p.SetBlock(5, -60, 6, 3)
	p.SetBiome(5, -60, 6, 4)
	p.SkyLights()[0].Set(5, 4, 6, 12)
	p.BlockEntities[cube.Pos{-107, -60, 198}] = map[string]any{"id": "Chest"}
	p.ScheduledTicks = append(p.ScheduledTicks, ScheduledTick{Pos: cube.Pos{-107, -60, 198}, Block: 3, Tick: 40})
	p.SetStage(StageFull)
	l := Upgrade(p, LightingDefault, testRegistry{})

	dec, err := FromRecord(ToRecord(l), testRange)
	if err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if dec.Pos() != l.Pos() || dec.Stage() != StageFull || !dec.LightPopulated() {
		t.Fatalf("decoded header mismatch: %v %v %v", dec.Pos(), dec.Stage(), dec.LightPopulated())
	}
	if dec.Block(5, -60, 6) != 3 || dec.Biome(5, -60, 6) != 4 || dec.SkyLights()[0].Get(5, 4, 6) != 12 {
		t.Fatalf("decoded payload mismatch")
	}
	if dec.BlockEntities[cube.Pos{-107, -60, 198}]["id"] != "Chest" || len(dec.ScheduledTicks) != 1 {
		t.Fatalf("decoded block entities or ticks mismatch")
	}
	if dec.Heightmaps() != l.Heightmaps() {
		t.Fatalf("decoded heightmaps mismatch")
	}
	if _, err := FromRecord(ToRecord(l), cube.Range{0, 255}); err == nil {
		t.Fatalf("expected error decoding with a different range")
	}
}

func TestPartialChunkKeepsStructures(t *testing.T) {
	start := StructureStart{Name: "dungeon", Min: cube.Pos{-20, 10, 30}, Max: cube.Pos{-12, 15, 36}}
	p := NewProto(Pos{-1, 2}, testRange, 0)
	p.SetStage(StageStructureReferences)
	p.Starts = []StructureStart{start}
	p.References = []Pos{{-1, 2}, {-2, 2}}

	dec, err := FromRecord(ToRecord(Upgrade(p, LightingDefault, testRegistry{})), testRange)
	if err != nil {
		t.Fatalf("decode record: %v", err)
	}
	resumed := ProtoFromLevel(dec, dec.Stage())
	if resumed.Stage() != StageStructureReferences {
		t.Fatalf("resumed at %v, expected %v", resumed.Stage(), StageStructureReferences)
	}
	if len(resumed.Starts) != 1 || resumed.Starts[0] != start {
		t.Fatalf("structure starts lost across save and load: %v", resumed.Starts)
	}
	if len(resumed.References) != 2 || resumed.References[0] != (Pos{-1, 2}) || resumed.References[1] != (Pos{-2, 2}) {
		t.Fatalf("structure references lost across save and load: %v", resumed.References)
	}
}

// panicRegistry panics when asked about anything but air.
type panicRegistry struct{ testRegistry }

func (panicRegistry) BlocksMotion(uint32) bool { panic("registry exploded") }

func TestFailedFinaliseKeepsProto(t *testing.T) {
	p := NewProto(Pos{0, 0}, testRange, 0)
	p.SetBlock(2, 10, 2, 3)
	p.Starts = []StructureStart{{Name: "dungeon"}}
	p.SetStage(StageLighting)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected finalise to panic")
			}
		}()
		Finalise(p, LightingDefault, panicRegistry{})
	}()
	if p.Stage() != StageLighting || p.Block(2, 10, 2) != 3 || len(p.Starts) != 1 || p.SkyLights() == nil {
		t.Fatalf("proto was modified by a failed finalise: stage=%v", p.Stage())
	}

	l := Finalise(p, LightingDefault, testRegistry{})
	if l.Stage() != StageFull || l.Block(2, 10, 2) != 3 || !l.LightPopulated() {
		t.Fatalf("retried finalise produced stage=%v populated=%v", l.Stage(), l.LightPopulated())
	}
}

func TestSectionIndexRejectsFarHeights(t *testing.T) {
	for _, y := range []int{testRange[0] - 1, testRange[1] + 1, 65600, -65600} {
		if i := SectionIndex(testRange, y); i != -1 {
			t.Fatalf("section index of y %v = %v, expected -1", y, i)
		}
	}
	if i := SectionIndex(testRange, 64); i != 8 {
		t.Fatalf("section index of y 64 = %v, expected 8", i)
	}
}
