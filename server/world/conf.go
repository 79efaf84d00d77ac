package world

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/dm-vev/adamant/server/block"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"golang.org/x/time/rate"
)

// Config may be used to create a new World. It holds a variety of fields that
// influence the World. The zero value is usable: defaults are applied by New.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is used.
	Log *slog.Logger
	// Provider is the Provider implementation chunks are loaded from and saved
	// to. If nil, NopProvider is used and nothing is persisted.
	Provider Provider
	// Generator is the generator used to generate chunks that are not stored
	// by the Provider. If nil, gen.NopGenerator is used.
	Generator gen.Generator
	// Registry provides the properties of block states. If nil,
	// block.Registry is used.
	Registry chunk.BlockRegistry
	// Dim is the dimension of the World. If its range is empty, gen.Overworld
	// is used.
	Dim gen.Dimension
	// Seed is the seed of the World. Generators use it to derive their noise
	// and random streams.
	Seed int64
	// Lighting is the way light is computed for generated chunks.
	Lighting chunk.LightingMode
	// GeneratorWorkers is the number of goroutines that generate chunks
	// concurrently. If 0 or lower, runtime.NumCPU() is used.
	GeneratorWorkers int
	// GeneratorQueueSize is the number of generation jobs that may be queued
	// before the scheduler holds jobs back. If 0 or lower, 4 jobs per worker
	// are queued.
	GeneratorQueueSize int
	// ReadWorkers is the number of goroutines that load chunks from the
	// Provider concurrently. If 0 or lower, 2 are used.
	ReadWorkers int
	// SaveBatchSize is the maximum number of chunks saved to the Provider at
	// once. If 0 or lower, 64 is used.
	SaveBatchSize int
	// UnloadInterval is the interval at which chunks that are no longer
	// needed are unloaded and saved. If 0 or lower, it is set to 10 seconds.
	UnloadInterval time.Duration
}

// New creates a new World using the Config conf. The World returned will
// start loading and generating chunks as soon as they are requested. The
// World should be closed using World.Close when it is no longer used.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Provider == nil {
		conf.Provider = NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = gen.NopGenerator{}
	}
	if conf.Registry == nil {
		conf.Registry = block.Registry{}
	}
	if conf.Dim.Range == (cube.Range{}) {
		conf.Dim = gen.Overworld
	}
	conf.Log = conf.Log.With("dimension", conf.Dim.Name)
	if conf.GeneratorWorkers <= 0 {
		conf.GeneratorWorkers = runtime.NumCPU()
	}
	if conf.GeneratorQueueSize <= 0 {
		conf.GeneratorQueueSize = conf.GeneratorWorkers * 4
	}
	if conf.ReadWorkers <= 0 {
		conf.ReadWorkers = 2
	}
	if conf.SaveBatchSize <= 0 {
		conf.SaveBatchSize = 64
	}
	if conf.UnloadInterval <= 0 {
		conf.UnloadInterval = time.Second * 10
	}

	readCtx, cancelReads := context.WithCancel(context.Background())
	w := &World{
		conf:          conf,
		ctx:           gen.NewContext(conf.Seed, conf.Dim, conf.Registry, conf.Generator, conf.Lighting),
		metrics:       NewMetrics(),
		locks:         newPositionLocks(conf.Log),
		queue:         make(chan func(*scheduler)),
		recv:          make(chan RecvChunk),
		loadQueue:     make(chan chunk.Pos, conf.ReadWorkers),
		genQueue:      make(chan generationJob, conf.GeneratorQueueSize),
		saveQueue:     make(chan []SaveEntry, 4),
		closing:       make(chan struct{}),
		schedulerDone: make(chan struct{}),
		readersDone:   make(chan struct{}),
		writerDone:    make(chan struct{}),
		cancelReads:   cancelReads,
		saturationLog: rate.Sometimes{Interval: time.Minute},
	}
	var h Handler = NopHandler{}
	w.handler.Store(&h)

	reader := &readWorker{
		log:      conf.Log,
		provider: conf.Provider,
		locks:    w.locks,
		metrics:  w.metrics,
		mode:     conf.Lighting,
		r:        conf.Dim.Range,
		air:      conf.Registry.Air(),
	}
	w.readers.Add(conf.ReadWorkers)
	for range conf.ReadWorkers {
		go func() {
			defer w.readers.Done()
			reader.run(readCtx, w.loadQueue, w.recv)
		}()
	}
	go func() {
		w.readers.Wait()
		close(w.readersDone)
	}()

	writer := &writeWorker{
		log:      conf.Log,
		provider: conf.Provider,
		locks:    w.locks,
		metrics:  w.metrics,
		mode:     conf.Lighting,
		reg:      conf.Registry,
	}
	go func() {
		defer close(w.writerDone)
		writer.run(w.saveQueue)
	}()

	w.generators.Add(conf.GeneratorWorkers)
	for range conf.GeneratorWorkers {
		go w.generatorWorker()
	}
	go newScheduler(w).run()
	return w
}
