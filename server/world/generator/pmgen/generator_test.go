package pmgen_test

import (
	"testing"

	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/dm-vev/adamant/server/world/generator/pmgen"
)

// rings returns how many rings of chunks around a chunk must reach stage s
// for the chunk itself to be generated to StageFull.
func rings(s chunk.Stage) int {
	n := 0
	for t := chunk.StageFull; t > s; t = t.Prev() {
		n += t.DirectRadius()
	}
	return n
}

// generate drives the chunk at centre to StageFull by advancing every chunk
// around it stage by stage.
func generate(t *testing.T, ctx *gen.Context, centre chunk.Pos) *chunk.LevelChunk {
	t.Helper()
	chunks := map[chunk.Pos]chunk.Chunk{}
	for _, pos := range chunk.Square(centre, rings(chunk.StageEmpty)) {
		chunks[pos] = chunk.NewProto(pos, ctx.Dim.Range, block.Air)
	}
	for _, stage := range chunk.Stages[1:] {
		for _, pos := range chunk.Square(centre, rings(stage)) {
			c := gen.NewCache(pos, stage, ctx.Registry)
			for _, p := range c.Positions() {
				if err := c.Put(chunks[p]); err != nil {
					t.Fatalf("put %v: %v", p, err)
				}
			}
			c.Advance(stage, ctx)
			for _, ch := range c.TakeAll() {
				chunks[ch.Pos()] = ch
			}
		}
	}
	l, ok := chunks[centre].(*chunk.LevelChunk)
	if !ok {
		t.Fatalf("chunk %v is %T after generation", centre, chunks[centre])
	}
	return l
}

func TestGenerateProducesTerrain(t *testing.T) {
	ctx := gen.NewContext(1234, gen.Overworld, block.Registry{}, pmgen.New(), chunk.LightingDefault)
	l := generate(t, ctx, chunk.Pos{0, 0})

	if l.Stage() != chunk.StageFull || !l.LightPopulated() {
		t.Fatalf("unexpected chunk: stage=%v populated=%v", l.Stage(), l.LightPopulated())
	}
	h := l.Heightmaps()
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			if got := l.Block(x, int16(gen.Overworld.Range[0]), z); got != block.Bedrock {
				t.Fatalf("block at bottom of %v %v = %v, expected bedrock", x, z, got)
			}
			top := h.WorldSurface.At(x, z)
			if int(top) < ctx.Settings.SeaLevel {
				t.Fatalf("column %v %v ends at %v, below sea level", x, z, top)
			}
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	ctx := gen.NewContext(99, gen.Overworld, block.Registry{}, pmgen.New(), chunk.LightingFull)
	a, b := generate(t, ctx, chunk.Pos{5, -3}), generate(t, ctx, chunk.Pos{5, -3})
	for i, s := range a.Sections() {
		if s != b.Sections()[i] {
			t.Fatalf("section %v differs between two generations with the same seed", i)
		}
	}
}
