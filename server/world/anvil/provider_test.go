package anvil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/world"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

func testLevel(pos chunk.Pos) *chunk.LevelChunk {
	p := chunk.NewProto(pos, gen.Overworld.Range, block.Air)
	p.SetBlock(15, -64, 15, block.Bedrock)
	p.SetBlock(1, 100, 2, block.Glowstone)
	p.SetStage(chunk.StageFull)
	return chunk.Upgrade(p, chunk.LightingDefault, block.Registry{})
}

func fetchOne(t *testing.T, p *Provider, pos chunk.Pos) world.FetchResult {
	t.Helper()
	for res := range p.FetchChunks(context.Background(), []chunk.Pos{pos}) {
		return res
	}
	t.Fatalf("no result fetched for %v", pos)
	return world.FetchResult{}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionGzip, CompressionZlib, CompressionNone, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			dir := t.TempDir()
			p, err := Config{Compression: c}.Open(dir)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			// Both chunks live in region -1,0.
			positions := []chunk.Pos{{-1, 0}, {-32, 31}}
			entries := make([]world.SaveEntry, len(positions))
			for i, pos := range positions {
				entries[i] = world.SaveEntry{Pos: pos, Chunk: testLevel(pos)}
			}
			if err := p.SaveChunks(context.Background(), entries); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, "region", "r.-1.0.mca")); err != nil {
				t.Fatalf("expected region file to be written: %v", err)
			}

			p, err = Config{}.Open(dir)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer p.Close()
			for _, pos := range positions {
				res := fetchOne(t, p, pos)
				if res.Kind != world.FetchLoaded {
					t.Fatalf("chunk %v: expected loaded, got %v (%v)", pos, res.Kind, res.Err)
				}
				if got := res.Chunk.Block(15, -64, 15); got != block.Bedrock {
					t.Fatalf("chunk %v: expected bedrock, got %v", pos, got)
				}
				if got := res.Chunk.Block(1, 100, 2); got != block.Glowstone {
					t.Fatalf("chunk %v: expected glowstone, got %v", pos, got)
				}
				if res.Chunk.Stage() != chunk.StageFull {
					t.Fatalf("chunk %v: expected full, got %v", pos, res.Chunk.Stage())
				}
			}
		})
	}
}

func TestFetchMissing(t *testing.T) {
	p, err := Config{}.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	pos := chunk.Pos{0, 0}
	if res := fetchOne(t, p, pos); res.Kind != world.FetchMissing {
		t.Fatalf("expected missing chunk without region file, got %v", res.Kind)
	}
	if err := p.SaveChunks(context.Background(), []world.SaveEntry{{Pos: pos, Chunk: testLevel(pos)}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if res := fetchOne(t, p, chunk.Pos{1, 0}); res.Kind != world.FetchMissing {
		t.Fatalf("expected missing chunk in existing region file, got %v", res.Kind)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	p, err := Config{}.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()

	pos := chunk.Pos{0, 0}
	for _, data := range [][]byte{nil, {9, 1, 2}, {byte(CompressionZlib), 1, 2, 3}} {
		if _, err := p.decode(pos, data); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("expected corrupt error for %v, got %v", data, err)
		}
	}

	data, err := p.encode(testLevel(chunk.Pos{5, 5}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := p.decode(pos, data); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected chunk stored under the wrong position to be corrupt, got %v", err)
	}
}
