package world

import (
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/google/uuid"
)

// RecvChunk is a message sent to the scheduler by the read and generation
// workers. It is implemented by IOChunk, GeneratedCache and GenerationFailure
// only.
type RecvChunk interface {
	// Position returns the position of the chunk the message is about.
	Position() chunk.Pos
	recvChunk()
}

// IOChunk carries a chunk produced by the read worker: either a chunk loaded
// from the Provider or a fresh ProtoChunk at StageEmpty.
type IOChunk struct {
	Pos   chunk.Pos
	Chunk chunk.Chunk
	// Outcome describes how the chunk was obtained.
	Outcome LoadOutcome
}

// GeneratedCache carries the window of a generation job that completed. The
// chunk at Pos was advanced to Stage.
type GeneratedCache struct {
	Job   uuid.UUID
	Pos   chunk.Pos
	Stage chunk.Stage
	Cache *gen.Cache
}

// GenerationFailure carries the window of a generation job that panicked. The
// chunks are handed back so they are not lost, but the chunk at Pos did not
// advance to Stage.
type GenerationFailure struct {
	Job     uuid.UUID
	Pos     chunk.Pos
	Stage   chunk.Stage
	Message string
	Cache   *gen.Cache
}

func (m IOChunk) Position() chunk.Pos           { return m.Pos }
func (m GeneratedCache) Position() chunk.Pos    { return m.Pos }
func (m GenerationFailure) Position() chunk.Pos { return m.Pos }

func (IOChunk) recvChunk()           {}
func (GeneratedCache) recvChunk()    {}
func (GenerationFailure) recvChunk() {}

// LoadOutcome classifies the result of loading a chunk.
type LoadOutcome uint8

const (
	// LoadedLevel is a chunk loaded at StageFull and used as is.
	LoadedLevel LoadOutcome = iota
	// LoadedPartial is a chunk loaded below StageFull, resumed as a
	// ProtoChunk at its stored stage.
	LoadedPartial
	// LoadedRelight is a chunk loaded at StageFull whose light looked stale.
	// It is resumed as a ProtoChunk at StageFeatures so that it is lit again.
	LoadedRelight
	// LoadedMissing is a chunk that was not stored and is generated anew.
	LoadedMissing
	// LoadedError is a chunk that could not be read and is generated anew.
	LoadedError
)

// String returns the name used for the outcome in logs and metrics.
func (o LoadOutcome) String() string {
	switch o {
	case LoadedLevel:
		return "level"
	case LoadedPartial:
		return "partial"
	case LoadedRelight:
		return "relight"
	case LoadedMissing:
		return "missing"
	default:
		return "error"
	}
}
