package world

import (
	"fmt"

	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/google/uuid"
)

// generationJob advances the chunk at Pos to Stage using the chunks in Cache,
// which the scheduler claimed for the job.
type generationJob struct {
	ID    uuid.UUID
	Pos   chunk.Pos
	Stage chunk.Stage
	Cache *gen.Cache
}

// generatorWorker processes generation jobs from the generator queue until it
// is closed. Every job, whether it succeeds or fails, results in exactly one
// message to the scheduler.
func (w *World) generatorWorker() {
	defer w.generators.Done()
	for job := range w.genQueue {
		w.recv <- w.runGenerationJob(job)
	}
}

// runGenerationJob advances the chunk of the job. A panic raised while
// generating, including a dependency violation detected by the cache, is
// recovered and turned into a GenerationFailure holding the cache, so that
// the chunks in it are handed back to the scheduler.
func (w *World) runGenerationJob(job generationJob) (msg RecvChunk) {
	defer func() {
		if r := recover(); r != nil {
			w.conf.Log.Error(
				"generate chunk: panic",
				"error", fmt.Sprint(r),
				"X", job.Pos[0],
				"Z", job.Pos[1],
				"stage", job.Stage,
				"job", job.ID,
			)
			msg = GenerationFailure{Job: job.ID, Pos: job.Pos, Stage: job.Stage, Message: fmt.Sprint(r), Cache: job.Cache}
		}
	}()
	job.Cache.Advance(job.Stage, w.ctx)
	return GeneratedCache{Job: job.ID, Pos: job.Pos, Stage: job.Stage, Cache: job.Cache}
}

// enqueueGeneration hands a job to the generator workers without blocking the
// scheduler. If the queue is full, the job is held back by the scheduler and
// sent once a worker frees up.
func (s *scheduler) enqueueGeneration(job generationJob) {
	if len(s.pendingJobs) == 0 {
		select {
		case s.w.genQueue <- job:
			return
		default:
		}
	}
	s.pendingJobs = append(s.pendingJobs, job)
	s.handleGeneratorBackpressure()
}

// handleGeneratorBackpressure counts jobs that found the queue full and emits a
// throttled warning so that operators can tune the number of workers.
func (s *scheduler) handleGeneratorBackpressure() {
	count := s.w.metrics.incBackpressure()
	s.w.saturationLog.Do(func() {
		s.w.conf.Log.Warn(
			"world generator queue saturated: chunk generation backlog detected.",
			"queued_tasks", count,
			"pending", len(s.pendingJobs),
			"queue_size", cap(s.w.genQueue),
			"workers", s.w.conf.GeneratorWorkers,
		)
	})
}
