package world

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

type stageEvent struct {
	pos   chunk.Pos
	stage chunk.Stage
}

// recordingHandler records every generation event in the order it was called.
type recordingHandler struct {
	NopHandler

	mu       sync.Mutex
	events   []stageEvent
	failures []GenerationFailure
}

func (h *recordingHandler) HandleChunkGenerated(pos chunk.Pos, stage chunk.Stage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, stageEvent{pos: pos, stage: stage})
}

func (h *recordingHandler) HandleGenerationFailure(f GenerationFailure) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, f)
}

func (h *recordingHandler) snapshot() ([]stageEvent, []GenerationFailure) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]stageEvent(nil), h.events...), append([]GenerationFailure(nil), h.failures...)
}

// faultyGenerator panics while shaping the terrain of a single chunk.
type faultyGenerator struct {
	gen.NopGenerator
	bad chunk.Pos
}

func (g faultyGenerator) Noise(_ *gen.Cache, p *chunk.ProtoChunk, _ *gen.Context) {
	if p.Pos() == g.bad {
		panic("terrain exploded")
	}
}

// exclusiveProvider is a MemoryProvider with slow saves that counts fetches of
// chunks while they are being saved.
type exclusiveProvider struct {
	MemoryProvider

	mu       sync.Mutex
	saving   map[chunk.Pos]bool
	overlaps int
}

func (p *exclusiveProvider) FetchChunks(ctx context.Context, positions []chunk.Pos) iter.Seq[FetchResult] {
	p.mu.Lock()
	for _, pos := range positions {
		if p.saving[pos] {
			p.overlaps++
		}
	}
	p.mu.Unlock()
	return p.MemoryProvider.FetchChunks(ctx, positions)
}

func (p *exclusiveProvider) SaveChunks(ctx context.Context, entries []SaveEntry) error {
	p.mu.Lock()
	if p.saving == nil {
		p.saving = make(map[chunk.Pos]bool)
	}
	for _, e := range entries {
		p.saving[e.Pos] = true
	}
	p.mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	err := p.MemoryProvider.SaveChunks(ctx, entries)

	p.mu.Lock()
	for _, e := range entries {
		delete(p.saving, e.Pos)
	}
	p.mu.Unlock()
	return err
}

func newTestWorld(t *testing.T, conf Config) *World {
	t.Helper()
	conf.Log = discardLogger()
	w := conf.New()
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Fatalf("failed closing world: %v", err)
		}
	})
	return w
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %v", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRequestBiomesLoadsSingleChunk(t *testing.T) {
	w := newTestWorld(t, Config{})
	if err := w.Request(testContext(t), chunk.Pos{0, 0}, chunk.StageBiomes); err != nil {
		t.Fatalf("request biomes: %v", err)
	}
	if n := w.Loaded(); n != 1 {
		t.Fatalf("expected only the requested chunk to be loaded, got %v chunks", n)
	}
}

func TestFeaturesWaitForNeighbourSurfaces(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWorld(t, Config{GeneratorWorkers: 4})
	w.Handle(h)
	if err := w.Request(testContext(t), chunk.Pos{0, 0}, chunk.StageFeatures); err != nil {
		t.Fatalf("request features: %v", err)
	}

	events, _ := h.snapshot()
	reached := map[chunk.Pos]chunk.Stage{}
	features := 0
	for _, e := range events {
		if e.stage == chunk.StageFeatures {
			features++
			for _, n := range chunk.Square(e.pos, 1) {
				if n != e.pos && reached[n] < chunk.StageSurface {
					t.Fatalf("chunk %v advanced to features while neighbour %v was at %v", e.pos, n, reached[n])
				}
			}
		}
		reached[e.pos] = max(reached[e.pos], e.stage)
	}
	if features != 1 || reached[chunk.Pos{0, 0}] != chunk.StageFeatures {
		t.Fatalf("expected exactly the requested chunk to reach features, got %v features events", features)
	}
}

func TestStagesAdvanceOneStepAtATime(t *testing.T) {
	h := &recordingHandler{}
	w := newTestWorld(t, Config{GeneratorWorkers: 4})
	w.Handle(h)
	if _, err := w.Chunk(testContext(t), chunk.Pos{2, 2}); err != nil {
		t.Fatalf("chunk: %v", err)
	}

	events, _ := h.snapshot()
	last := map[chunk.Pos]chunk.Stage{}
	for _, e := range events {
		prev, ok := last[e.pos]
		if !ok {
			prev = chunk.StageEmpty
		}
		if e.stage != prev.Next() {
			t.Fatalf("chunk %v advanced from %v to %v", e.pos, prev, e.stage)
		}
		last[e.pos] = e.stage
	}
	if last[chunk.Pos{2, 2}] != chunk.StageFull {
		t.Fatalf("requested chunk ended at %v", last[chunk.Pos{2, 2}])
	}
}

func TestChunkIsLitAndFull(t *testing.T) {
	w := newTestWorld(t, Config{Lighting: chunk.LightingDefault})
	l, err := w.Chunk(testContext(t), chunk.Pos{-1, 4})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if l.Stage() != chunk.StageFull || !l.LightPopulated() {
		t.Fatalf("unexpected chunk: stage=%v populated=%v", l.Stage(), l.LightPopulated())
	}
	if level, ok := l.SkyLights()[len(l.SkyLights())-1].Uniform(); !ok || level != chunk.MaxLight {
		t.Fatalf("expected top section of an empty world to be fully sky lit")
	}
}

func TestGenerationFailureIsIsolated(t *testing.T) {
	bad := chunk.Pos{10, 10}
	h := &recordingHandler{}
	w := newTestWorld(t, Config{Generator: faultyGenerator{bad: bad}})
	w.Handle(h)
	ctx := testContext(t)

	if err := w.Request(ctx, bad, chunk.StageNoise); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed for the faulty chunk, got %v", err)
	}
	// Any chunk that needs the faulty one to advance fails as well.
	if _, err := w.Chunk(ctx, chunk.Pos{11, 10}); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed for a dependent chunk, got %v", err)
	}
	// Chunks far away are not affected.
	if _, err := w.Chunk(ctx, chunk.Pos{-20, -20}); err != nil {
		t.Fatalf("chunk far from the faulty one: %v", err)
	}

	_, failures := h.snapshot()
	if len(failures) == 0 || failures[0].Pos != bad || failures[0].Stage != chunk.StageNoise {
		t.Fatalf("expected failure of %v at noise to be reported, got %+v", bad, failures)
	}
	if failures[0].Message != "terrain exploded" {
		t.Fatalf("unexpected failure message %q", failures[0].Message)
	}
	if n := w.Metrics().Failures[chunk.StageNoise]; n == 0 {
		t.Fatalf("expected failures to be counted")
	}
}

func TestChunksPersistAcrossWorlds(t *testing.T) {
	prov := &MemoryProvider{}
	pos := chunk.Pos{4, -7}

	w := Config{Log: discardLogger(), Provider: prov}.New()
	l, err := w.Chunk(testContext(t), pos)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	l.SetBlock(3, 70, 9, block.Glowstone)
	l.MarkDirty()
	w.Release(pos, chunk.StageFull)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if n := w.locks.len(); n != 0 {
		t.Fatalf("expected all locks to be released after close, got %v", n)
	}

	stored, ok := prov.Stored(pos)
	if !ok || stored.Stage() != chunk.StageFull {
		t.Fatalf("expected chunk %v to be stored at full", pos)
	}
	// The neighbours generated for it were stored partially generated.
	if partial, ok := prov.Stored(pos.Add(1, 0)); !ok || partial.Stage() != chunk.StageLighting {
		t.Fatalf("expected neighbour to be stored at lighting")
	}

	w = newTestWorld(t, Config{Provider: prov})
	l, err = w.Chunk(testContext(t), pos)
	if err != nil {
		t.Fatalf("chunk after reload: %v", err)
	}
	if got := l.Block(3, 70, 9); got != block.Glowstone {
		t.Fatalf("expected stored block to survive, got %v", got)
	}
	if n := w.Metrics().Loads[LoadedLevel]; n != 1 {
		t.Fatalf("expected 1 chunk loaded as level, got %v", n)
	}
}

func TestStaleLightIsRecomputed(t *testing.T) {
	prov := &MemoryProvider{}
	pos := chunk.Pos{0, 0}
	stale := chunk.NewLevel(pos, gen.Overworld.Range, block.Air, chunk.StageFull)
	prov.Store(stale)

	w := newTestWorld(t, Config{Provider: prov, Lighting: chunk.LightingDefault})
	l, err := w.Chunk(testContext(t), pos)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if !l.LightPopulated() {
		t.Fatalf("expected relit chunk to be light populated")
	}
	if level, ok := l.SkyLights()[len(l.SkyLights())-1].Uniform(); !ok || level != chunk.MaxLight {
		t.Fatalf("expected relit chunk to be sky lit")
	}
	if n := w.Metrics().Loads[LoadedRelight]; n != 1 {
		t.Fatalf("expected 1 relit chunk, got %v", n)
	}
}

func TestFetchWaitsForSave(t *testing.T) {
	prov := &exclusiveProvider{}
	w := newTestWorld(t, Config{Provider: prov})
	ctx := testContext(t)
	pos := chunk.Pos{5, 5}

	if err := w.Request(ctx, pos, chunk.StageBiomes); err != nil {
		t.Fatalf("request: %v", err)
	}
	w.Release(pos, chunk.StageBiomes)
	w.Unload()
	if err := w.Request(ctx, pos, chunk.StageStructureStart); err != nil {
		t.Fatalf("request after unload: %v", err)
	}

	prov.mu.Lock()
	overlaps := prov.overlaps
	prov.mu.Unlock()
	if overlaps != 0 {
		t.Fatalf("chunk was fetched %v times while it was being saved", overlaps)
	}
	if n := w.Metrics().Loads[LoadedPartial]; n != 1 {
		t.Fatalf("expected the saved chunk to be loaded back, got %v partial loads", n)
	}
}

func TestLocksBalancedWhenIdle(t *testing.T) {
	w := newTestWorld(t, Config{})
	ctx := testContext(t)
	for _, pos := range []chunk.Pos{{0, 0}, {8, 8}} {
		if err := w.Request(ctx, pos, chunk.StageFull); err != nil {
			t.Fatalf("request %v: %v", pos, err)
		}
		w.Release(pos, chunk.StageFull)
	}
	w.Unload()
	waitFor(t, "all chunks to be unloaded", func() bool {
		return w.Loaded() == 0 && w.locks.len() == 0
	})
	if n := w.Metrics().Advances[chunk.StageFull]; n != 2 {
		t.Fatalf("expected 2 chunks advanced to full, got %v", n)
	}
}

func TestClosedWorldRejectsRequests(t *testing.T) {
	w := Config{Log: discardLogger()}.New()
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Request(context.Background(), chunk.Pos{}, chunk.StageBiomes); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestHeldChunkUnchangedByNeighbourLighting(t *testing.T) {
	prov := &MemoryProvider{}
	centre, east := chunk.Pos{0, 0}, chunk.Pos{1, 0}
	for _, pos := range chunk.Square(centre, 2) {
		if pos != centre {
			prov.Store(litLevel(pos))
		}
	}
	// The centre is stored with stale light, so it is relit next to its
	// already lit neighbours. Its glowstone touches the chunk to the east.
	stale := chunk.NewLevel(centre, gen.Overworld.Range, block.Air, chunk.StageFull)
	for i := range stale.SkyLights() {
		stale.SkyLights()[i] = chunk.EmptyLight(chunk.MaxLight)
	}
	stale.SetBlock(15, 61, 8, block.Glowstone)
	prov.Store(stale)

	w := newTestWorld(t, Config{Provider: prov, Lighting: chunk.LightingDefault})
	ctx := testContext(t)
	l, err := w.Chunk(ctx, east)
	if err != nil {
		t.Fatalf("chunk %v: %v", east, err)
	}
	defer w.Release(east, chunk.StageFull)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, c := range l.BlockLights() {
				_ = c.Get(0, 13, 8)
			}
		}
	}()

	lit, err := w.Chunk(ctx, centre)
	close(done)
	wg.Wait()
	if err != nil {
		t.Fatalf("chunk %v: %v", centre, err)
	}
	defer w.Release(centre, chunk.StageFull)

	if !lit.LightPopulated() {
		t.Fatalf("expected centre to be relit")
	}
	for i, c := range l.BlockLights() {
		if level, ok := c.Uniform(); !ok || level != 0 || c.Full() {
			t.Fatalf("block light of section %v of the held chunk changed", i)
		}
	}
}

func TestReleaseLowersTarget(t *testing.T) {
	w := newTestWorld(t, Config{})
	ctx := testContext(t)
	pos := chunk.Pos{3, 3}

	if err := w.Request(ctx, pos, chunk.StageFull); err != nil {
		t.Fatalf("request full: %v", err)
	}
	if err := w.Request(ctx, pos, chunk.StageBiomes); err != nil {
		t.Fatalf("request biomes: %v", err)
	}
	w.Release(pos, chunk.StageFull)
	w.Unload()
	// Only the chunk itself is still needed for its biomes ticket.
	waitFor(t, "the neighbours to be unloaded", func() bool {
		w.Unload()
		return w.Loaded() == 1
	})

	w.Release(pos, chunk.StageBiomes)
	// A ticket that was never registered is ignored.
	w.Release(pos, chunk.StageBiomes)
	waitFor(t, "the chunk to be unloaded", func() bool {
		w.Unload()
		return w.Loaded() == 0
	})
}
