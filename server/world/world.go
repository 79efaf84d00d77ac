package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"golang.org/x/time/rate"
)

var (
	// ErrClosed is returned by the methods of a World after it was closed.
	ErrClosed = errors.New("world closed")
	// ErrGenerationFailed is returned if a chunk, or a chunk it depends on,
	// could not be generated. Requesting the chunk again retries generation.
	ErrGenerationFailed = errors.New("chunk generation failed")
)

// World manages the chunks of a single dimension. It loads chunks from its
// Provider, generates chunks that are not stored, stage by stage, and saves
// chunks that are no longer needed. All methods of World are safe for
// concurrent use.
//
// Chunks are requested with tickets: every successful call to Request or
// Chunk registers a ticket that keeps the chunk loaded until it is released
// using Release.
type World struct {
	conf    Config
	ctx     *gen.Context
	metrics *Metrics
	handler atomic.Pointer[Handler]
	locks   *positionLocks

	// queue holds functions executed by the scheduler goroutine.
	queue     chan func(*scheduler)
	recv      chan RecvChunk
	loadQueue chan chunk.Pos
	genQueue  chan generationJob
	saveQueue chan []SaveEntry

	o             sync.Once
	closing       chan struct{}
	schedulerDone chan struct{}
	cancelReads   context.CancelFunc
	readers       sync.WaitGroup
	readersDone   chan struct{}
	generators    sync.WaitGroup
	writerDone    chan struct{}

	saturationLog rate.Sometimes
}

// Range returns the vertical range of the chunks of the World.
func (w *World) Range() cube.Range {
	return w.conf.Dim.Range
}

// Dimension returns the dimension of the World.
func (w *World) Dimension() gen.Dimension {
	return w.conf.Dim
}

// Metrics returns a snapshot of the counters of the World.
func (w *World) Metrics() MetricsSnapshot {
	return w.metrics.Snapshot()
}

// Handle changes the current Handler of the World. As a result, events called
// by the World will call handlers of the Handler passed. Handle sets the
// World's Handler to NopHandler if nil is passed.
func (w *World) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	w.handler.Store(&h)
}

// Handler returns the Handler of the World.
func (w *World) Handler() Handler {
	return *w.handler.Load()
}

// Request registers a ticket for the chunk at pos and blocks until the chunk
// has reached stage, loading and generating it and the chunks around it as
// needed. The ticket is registered even if Request returns an error other
// than ErrClosed, and must be released using Release.
//
// Request returns ErrGenerationFailed if the chunk could not be generated and
// ErrClosed if the World is closed before the chunk is ready.
func (w *World) Request(ctx context.Context, pos chunk.Pos, stage chunk.Stage) error {
	_, err := w.request(ctx, pos, stage)
	return err
}

// Chunk requests the chunk at pos like Request does, and returns it once it is
// fully generated. The chunk returned remains valid at least until the ticket
// is released using Release.
func (w *World) Chunk(ctx context.Context, pos chunk.Pos) (*chunk.LevelChunk, error) {
	ch, err := w.request(ctx, pos, chunk.StageFull)
	if err != nil {
		return nil, err
	}
	l, ok := ch.(*chunk.LevelChunk)
	if !ok {
		return nil, fmt.Errorf("chunk %v: %T at stage full", pos, ch)
	}
	return l, nil
}

func (w *World) request(ctx context.Context, pos chunk.Pos, stage chunk.Stage) (chunk.Chunk, error) {
	if stage > chunk.StageFull {
		return nil, fmt.Errorf("request chunk %v: unknown stage %v", pos, stage)
	}
	req := &request{pos: pos, stage: stage, done: make(chan result, 1)}
	if !w.exec(func(s *scheduler) { s.request(req) }) {
		return nil, ErrClosed
	}
	select {
	case res := <-req.done:
		return res.ch, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release releases a ticket registered by Request for the chunk at pos and
// stage. Tickets registered by Chunk are released with StageFull. The chunk is
// kept at the highest stage still requested, and once no ticket holds it, it is
// unloaded and saved by the World unless other chunks still depend on it.
func (w *World) Release(pos chunk.Pos, stage chunk.Stage) {
	w.exec(func(s *scheduler) { s.release(pos, stage) })
}

// Loaded returns the number of chunks currently held by the World, including
// chunks being loaded or generated.
func (w *World) Loaded() int {
	n := make(chan int, 1)
	if !w.exec(func(s *scheduler) { n <- len(s.entries) }) {
		return 0
	}
	return <-n
}

// Unload unloads and saves every chunk that is no longer needed without
// waiting for the next periodic unload pass.
func (w *World) Unload() {
	w.exec(func(s *scheduler) { s.unloadUnused() })
}

// exec runs f on the scheduler goroutine. It returns false if the World was
// closed and f was not run.
func (w *World) exec(f func(*scheduler)) bool {
	select {
	case w.queue <- f:
		return true
	case <-w.closing:
		return false
	}
}

// Close closes the World. Requests still waiting fail with ErrClosed, every
// chunk is saved to the Provider, and the Provider is closed.
func (w *World) Close() error {
	var err error
	w.o.Do(func() {
		close(w.closing)
		<-w.schedulerDone
		w.generators.Wait()
		<-w.writerDone

		w.conf.Log.Debug("Closing provider...")
		if err = w.conf.Provider.Close(); err != nil {
			err = fmt.Errorf("close world provider: %w", err)
		}
	})
	return err
}
