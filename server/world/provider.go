package world

import (
	"context"
	"iter"
	"sync"

	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
)

// Provider represents a value that may provide world data to a World value. It
// usually does the reading and writing of the world data so that the World may
// use it.
type Provider interface {
	// FetchChunks reads the chunks at the positions passed. It yields exactly
	// one FetchResult per position, in any order. Implementations should stop
	// early if ctx is cancelled.
	FetchChunks(ctx context.Context, positions []chunk.Pos) iter.Seq[FetchResult]
	// SaveChunks writes the chunks passed to persistent storage. Every entry
	// holds a LevelChunk, although not all of them are at StageFull.
	SaveChunks(ctx context.Context, entries []SaveEntry) error
	// Close closes the provider, saving any data that may still be in memory.
	Close() error
}

// FetchKind is the outcome of fetching a single chunk from a Provider.
type FetchKind uint8

const (
	// FetchLoaded means the chunk was found and decoded.
	FetchLoaded FetchKind = iota
	// FetchMissing means no chunk was stored at the position.
	FetchMissing
	// FetchError means the chunk could not be read or decoded.
	FetchError
)

// String returns the name used for the kind in logs and metrics.
func (k FetchKind) String() string {
	switch k {
	case FetchLoaded:
		return "loaded"
	case FetchMissing:
		return "missing"
	default:
		return "error"
	}
}

// FetchResult is the result of fetching the chunk at Pos. Chunk is non-nil
// only if Kind is FetchLoaded, and Err only if Kind is FetchError.
type FetchResult struct {
	Pos   chunk.Pos
	Kind  FetchKind
	Chunk *chunk.LevelChunk
	Err   error
}

// SaveEntry pairs a chunk with the position it is saved at. Chunk is either a
// ProtoChunk or a LevelChunk when handed to the write worker, and always a
// LevelChunk by the time it reaches a Provider.
type SaveEntry struct {
	Pos   chunk.Pos
	Chunk chunk.Chunk
}

// Level returns the LevelChunk of the entry, or nil if the chunk has not yet
// been upgraded.
func (e SaveEntry) Level() *chunk.LevelChunk {
	l, _ := e.Chunk.(*chunk.LevelChunk)
	return l
}

// NopProvider implements a Provider that does not perform any disk I/O. It
// reports every chunk as missing and discards saved chunks.
type NopProvider struct{}

// Compile time check to make sure NopProvider implements Provider.
var _ Provider = NopProvider{}

func (NopProvider) FetchChunks(_ context.Context, positions []chunk.Pos) iter.Seq[FetchResult] {
	return func(yield func(FetchResult) bool) {
		for _, pos := range positions {
			if !yield(FetchResult{Pos: pos, Kind: FetchMissing}) {
				return
			}
		}
	}
}
func (NopProvider) SaveChunks(context.Context, []SaveEntry) error { return nil }
func (NopProvider) Close() error                                  { return nil }

// MemoryProvider is a Provider keeping chunks in memory. Chunks are stored as
// records, so chunks fetched never share buffers with chunks saved. The zero
// value is ready for use.
type MemoryProvider struct {
	mu     sync.Mutex
	chunks map[chunk.Pos]memoryEntry
	// Errors, if non-nil, is consulted on every fetch. A non-nil error
	// returned for a position makes the fetch of it fail.
	Errors func(pos chunk.Pos) error

	fetches, saves int
}

type memoryEntry struct {
	rec chunk.Record
	r   cube.Range
}

// Compile time check to make sure MemoryProvider implements Provider.
var _ Provider = (*MemoryProvider)(nil)

func (m *MemoryProvider) FetchChunks(ctx context.Context, positions []chunk.Pos) iter.Seq[FetchResult] {
	return func(yield func(FetchResult) bool) {
		for _, pos := range positions {
			if ctx.Err() != nil {
				return
			}
			if !yield(m.fetch(pos)) {
				return
			}
		}
	}
}

func (m *MemoryProvider) fetch(pos chunk.Pos) FetchResult {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()

	if m.Errors != nil {
		if err := m.Errors(pos); err != nil {
			return FetchResult{Pos: pos, Kind: FetchError, Err: err}
		}
	}
	l, ok, err := m.decode(pos)
	switch {
	case err != nil:
		return FetchResult{Pos: pos, Kind: FetchError, Err: err}
	case !ok:
		return FetchResult{Pos: pos, Kind: FetchMissing}
	}
	return FetchResult{Pos: pos, Kind: FetchLoaded, Chunk: l}
}

func (m *MemoryProvider) decode(pos chunk.Pos) (*chunk.LevelChunk, bool, error) {
	m.mu.Lock()
	e, ok := m.chunks[pos]
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	l, err := chunk.FromRecord(e.rec, e.r)
	return l, err == nil, err
}

func (m *MemoryProvider) SaveChunks(_ context.Context, entries []SaveEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunks == nil {
		m.chunks = make(map[chunk.Pos]memoryEntry)
	}
	for _, e := range entries {
		l := e.Level()
		if l == nil {
			continue
		}
		m.chunks[e.Pos] = memoryEntry{rec: chunk.ToRecord(l), r: l.Range()}
		l.MarkSaved()
		m.saves++
	}
	return nil
}

func (m *MemoryProvider) Close() error { return nil }

// Store saves l directly, as if it had been saved by a World.
func (m *MemoryProvider) Store(l *chunk.LevelChunk) {
	_ = m.SaveChunks(context.Background(), []SaveEntry{{Pos: l.Pos(), Chunk: l}})
}

// Stored returns the chunk saved at pos, decoded again.
func (m *MemoryProvider) Stored(pos chunk.Pos) (*chunk.LevelChunk, bool) {
	l, ok, _ := m.decode(pos)
	return l, ok
}

// Counts returns how many chunks were fetched and saved so far.
func (m *MemoryProvider) Counts() (fetches, saves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches, m.saves
}
