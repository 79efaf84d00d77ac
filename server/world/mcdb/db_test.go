package mcdb

import (
	"context"
	"errors"
	"testing"

	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/world"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

func openTestDB(t *testing.T, dir string, dim gen.Dimension) *DB {
	t.Helper()
	db, err := Config{Dim: dim}.Open(dir)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func fetchOne(t *testing.T, db *DB, pos chunk.Pos) world.FetchResult {
	t.Helper()
	for res := range db.FetchChunks(context.Background(), []chunk.Pos{pos}) {
		return res
	}
	t.Fatalf("no result fetched for %v", pos)
	return world.FetchResult{}
}

func testLevel(pos chunk.Pos, r gen.Dimension) *chunk.LevelChunk {
	p := chunk.NewProto(pos, r.Range, block.Air)
	p.SetBlock(3, 10, 7, block.Stone)
	p.SetBiome(0, 0, 0, 5)
	p.SetStage(chunk.StageFull)
	return chunk.Upgrade(p, chunk.LightingDefault, block.Registry{})
}

func TestSaveAndFetch(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir, gen.Overworld)

	pos := chunk.Pos{-3, 12}
	l := testLevel(pos, gen.Overworld)
	l.MarkDirty()
	if err := db.SaveChunks(context.Background(), []world.SaveEntry{{Pos: pos, Chunk: l}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if l.Dirty() {
		t.Fatalf("expected saved chunk to no longer be dirty")
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db = openTestDB(t, dir, gen.Overworld)
	defer db.Close()
	res := fetchOne(t, db, pos)
	if res.Kind != world.FetchLoaded {
		t.Fatalf("expected chunk to be loaded, got %v (%v)", res.Kind, res.Err)
	}
	if res.Chunk.Stage() != chunk.StageFull || res.Chunk.Pos() != pos {
		t.Fatalf("loaded chunk %v at %v, expected %v at full", res.Chunk.Pos(), res.Chunk.Stage(), pos)
	}
	if got := res.Chunk.Block(3, 10, 7); got != block.Stone {
		t.Fatalf("expected stone to survive the round trip, got %v", got)
	}
	if got := res.Chunk.Biome(0, 0, 0); got != 5 {
		t.Fatalf("expected biome 5 to survive the round trip, got %v", got)
	}
}

func TestFetchMissing(t *testing.T) {
	db := openTestDB(t, t.TempDir(), gen.Overworld)
	defer db.Close()

	if res := fetchOne(t, db, chunk.Pos{100, 100}); res.Kind != world.FetchMissing {
		t.Fatalf("expected missing chunk, got %v", res.Kind)
	}
}

func TestDimensionsAreSeparate(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir, gen.Nether)
	pos := chunk.Pos{1, 1}
	if err := db.SaveChunks(context.Background(), []world.SaveEntry{{Pos: pos, Chunk: testLevel(pos, gen.Nether)}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db = openTestDB(t, dir, gen.Overworld)
	defer db.Close()
	if res := fetchOne(t, db, pos); res.Kind != world.FetchMissing {
		t.Fatalf("expected nether chunk to be invisible in the overworld, got %v", res.Kind)
	}
}

func TestFetchCorrupt(t *testing.T) {
	db := openTestDB(t, t.TempDir(), gen.Overworld)
	defer db.Close()

	pos := chunk.Pos{0, 0}
	if err := db.SaveChunks(context.Background(), []world.SaveEntry{{Pos: pos, Chunk: testLevel(pos, gen.Overworld)}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := db.LDB().Get(db.index(pos), nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err := db.LDB().Put(db.index(pos), data, nil); err != nil {
		t.Fatalf("put: %v", err)
	}

	res := fetchOne(t, db, pos)
	if res.Kind != world.FetchError || !errors.Is(res.Err, ErrCorrupt) {
		t.Fatalf("expected corrupt chunk error, got %v (%v)", res.Kind, res.Err)
	}
}

func TestSaveRejectsProtoChunks(t *testing.T) {
	db := openTestDB(t, t.TempDir(), gen.Overworld)
	defer db.Close()

	p := chunk.NewProto(chunk.Pos{0, 0}, gen.Overworld.Range, block.Air)
	if err := db.SaveChunks(context.Background(), []world.SaveEntry{{Pos: p.Pos(), Chunk: p}}); err == nil {
		t.Fatalf("expected proto chunk to be rejected")
	}
}

func TestIncompatibleVersion(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir, gen.Overworld)
	if err := db.LDB().Put([]byte(keyVersion), []byte("v2.0.0"), nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := (Config{}).Open(dir); !errors.Is(err, ErrIncompatible) {
		t.Fatalf("expected incompatible version error, got %v", err)
	}
}
