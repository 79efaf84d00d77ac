package world

import (
	"context"
	"log/slog"

	"github.com/dm-vev/adamant/server/world/chunk"
)

// writeWorker saves batches of chunks unloaded by the scheduler. After a batch
// is saved, the locks of all of its positions are released so that the
// chunks may be loaded again.
type writeWorker struct {
	log      *slog.Logger
	provider Provider
	locks    *positionLocks
	metrics  *Metrics

	mode chunk.LightingMode
	reg  chunk.BlockRegistry
}

// run saves batches from in until in is closed and drained. Saving is not
// cancellable: every chunk handed to the worker is written before run
// returns.
func (w *writeWorker) run(in <-chan []SaveEntry) {
	for batch := range in {
		w.save(batch)
	}
}

func (w *writeWorker) save(batch []SaveEntry) {
	dirty := make([]SaveEntry, 0, len(batch))
	for _, e := range batch {
		switch c := e.Chunk.(type) {
		case *chunk.ProtoChunk:
			if c.Stage() <= chunk.StageEmpty {
				// Nothing was generated yet.
				continue
			}
			// Partially generated chunks keep their stage as status and
			// resume from it when loaded again.
			e.Chunk = chunk.Upgrade(c, w.mode, w.reg)
		case *chunk.LevelChunk:
			if !c.Dirty() {
				continue
			}
		}
		dirty = append(dirty, e)
	}
	if len(dirty) > 0 {
		if err := w.provider.SaveChunks(context.Background(), dirty); err != nil {
			w.log.Error("save chunks", "error", err, "count", len(dirty))
			w.metrics.incSaveFailure()
		} else {
			w.metrics.addSaves(len(dirty))
		}
	}
	for _, e := range batch {
		w.locks.release(e.Pos)
	}
}
