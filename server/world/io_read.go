package world

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
)

// readWorker loads chunks from a Provider for the scheduler. For every
// position it receives it takes the lock of the position, fetches the chunk
// and sends the result to the scheduler as an IOChunk. The lock stays held
// until the chunk is saved again by the write worker.
type readWorker struct {
	log      *slog.Logger
	provider Provider
	locks    *positionLocks
	metrics  *Metrics

	mode chunk.LightingMode
	r    cube.Range
	air  uint32
}

// run processes positions from in until in is closed or ctx is cancelled. A
// single fetch is in flight at any time.
func (w *readWorker) run(ctx context.Context, in <-chan chunk.Pos, out chan<- RecvChunk) {
	for {
		select {
		case pos, ok := <-in:
			if !ok {
				return
			}
			if !w.load(ctx, pos, out) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// load loads the chunk at pos and emits it on out. It returns false if ctx was
// cancelled before the chunk could be emitted, in which case the lock of pos
// is not left held.
func (w *readWorker) load(ctx context.Context, pos chunk.Pos, out chan<- RecvChunk) bool {
	if err := w.locks.acquire(ctx, pos); err != nil {
		return false
	}
	res, ok := w.fetch(ctx, pos)
	if !ok {
		w.locks.release(pos)
		return false
	}
	ch, outcome := w.classify(res)
	w.metrics.incLoad(outcome)

	select {
	case out <- IOChunk{Pos: pos, Chunk: ch, Outcome: outcome}:
		return true
	case <-ctx.Done():
		// Nobody is going to take ownership of the chunk, so nobody is going
		// to save it and release the lock either.
		w.locks.release(pos)
		return false
	}
}

// fetch fetches the chunk at pos from the provider. It returns false only if
// ctx was cancelled before a result was produced.
func (w *readWorker) fetch(ctx context.Context, pos chunk.Pos) (FetchResult, bool) {
	for res := range w.provider.FetchChunks(ctx, []chunk.Pos{pos}) {
		if res.Pos == pos {
			return res, true
		}
	}
	if err := ctx.Err(); err != nil {
		return FetchResult{}, false
	}
	return FetchResult{Pos: pos, Kind: FetchError, Err: errors.New("provider returned no result")}, true
}

// classify turns the result of a fetch into the chunk handed to the scheduler.
// Chunks that are not stored or could not be read are generated from scratch,
// chunks stored below StageFull resume generation at their stored stage, and
// fully generated chunks with stale light are lit again.
func (w *readWorker) classify(res FetchResult) (chunk.Chunk, LoadOutcome) {
	switch res.Kind {
	case FetchLoaded:
		l := res.Chunk
		switch {
		case l.Stage() < chunk.StageFull:
			return chunk.ProtoFromLevel(l, l.Stage()), LoadedPartial
		case chunk.NeedsRelight(l, w.mode):
			p := chunk.ProtoFromLevel(l, chunk.StageFeatures)
			p.ResetLight()
			return p, LoadedRelight
		}
		return l, LoadedLevel
	case FetchMissing:
		return chunk.NewProto(res.Pos, w.r, w.air), LoadedMissing
	}
	w.log.Error("load chunk: regenerating", "error", res.Err, "X", res.Pos[0], "Z", res.Pos[1])
	return chunk.NewProto(res.Pos, w.r, w.air), LoadedError
}
