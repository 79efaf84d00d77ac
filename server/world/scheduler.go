package world

import (
	"time"

	"github.com/brentp/intintmap"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/google/uuid"
)

// scheduler owns every chunk resident in a World. It runs in a single
// goroutine: requests, releases and worker results are all processed there,
// so none of its state is guarded by locks. Chunks leave the scheduler only
// when they are claimed by a generation job or unloaded to the write worker.
type scheduler struct {
	w *World

	entries map[chunk.Pos]*entry
	// tickets maps the packed position of every chunk with tickets to its
	// slot in ticketCounts, which holds the number of tickets per stage.
	tickets      *intintmap.Map
	ticketCounts []ticketCounts
	freeSlots    []int64
	// targets holds the stage every position must be advanced to, to satisfy
	// the tickets and the dependencies of chunks being advanced for them.
	targets map[chunk.Pos]chunk.Stage
	blocked map[chunk.Pos]bool
	dirty   bool

	pendingLoads []chunk.Pos
	pendingJobs  []generationJob
	inflight     int
}

// entry is the state of a single chunk position known to the scheduler.
type entry struct {
	// ch is nil while the chunk is being loaded or is claimed by a job.
	ch      chunk.Chunk
	stage   chunk.Stage
	loading bool
	// failed holds the message of the last failed generation of the chunk.
	// The chunk is not advanced while it is set.
	failed  string
	waiters []*request
}

// ticketCounts holds the number of tickets registered for each stage of one
// position.
type ticketCounts [chunk.StageFull + 1]int32

// max returns the highest stage with a ticket, or StageNone if there is none.
func (c *ticketCounts) max() chunk.Stage {
	for st := chunk.StageFull; st > chunk.StageNone; st-- {
		if c[st] > 0 {
			return st
		}
	}
	return chunk.StageNone
}

// request is a request for the chunk at pos to reach stage.
type request struct {
	pos   chunk.Pos
	stage chunk.Stage
	done  chan result
}

type result struct {
	ch  chunk.Chunk
	err error
}

func (r *request) reply(ch chunk.Chunk, err error) {
	r.done <- result{ch: ch, err: err}
}

func newScheduler(w *World) *scheduler {
	return &scheduler{
		w:       w,
		entries: make(map[chunk.Pos]*entry),
		tickets: intintmap.New(64, 0.6),
		targets: make(map[chunk.Pos]chunk.Stage),
		blocked: make(map[chunk.Pos]bool),
	}
}

// run processes events until the World is closed, after which every chunk is
// unloaded.
func (s *scheduler) run() {
	defer close(s.w.schedulerDone)

	unload := time.NewTicker(s.w.conf.UnloadInterval)
	defer unload.Stop()

	for {
		var (
			loads   chan<- chunk.Pos
			nextPos chunk.Pos
			jobs    chan<- generationJob
			nextJob generationJob
		)
		if len(s.pendingLoads) > 0 {
			loads, nextPos = s.w.loadQueue, s.pendingLoads[0]
		}
		if len(s.pendingJobs) > 0 {
			jobs, nextJob = s.w.genQueue, s.pendingJobs[0]
		}

		select {
		case f := <-s.w.queue:
			f(s)
		case msg := <-s.w.recv:
			s.receive(msg)
			s.drain()
		case loads <- nextPos:
			s.pendingLoads = s.pendingLoads[1:]
		case jobs <- nextJob:
			s.pendingJobs = s.pendingJobs[1:]
		case <-unload.C:
			s.unloadUnused()
		case <-s.w.closing:
			s.shutdown()
			return
		}
		if s.dirty {
			s.recompute()
			s.schedule()
		}
	}
}

// drain receives every worker message that is immediately available, so that
// targets are recomputed once for all of them.
func (s *scheduler) drain() {
	for {
		select {
		case msg := <-s.w.recv:
			s.receive(msg)
		default:
			return
		}
	}
}

// request registers a ticket for the chunk at req.pos and replies to req once
// the chunk has reached the stage requested.
func (s *scheduler) request(req *request) {
	key := req.pos.Pack()
	slot, ok := s.tickets.Get(key)
	if !ok {
		if n := len(s.freeSlots); n > 0 {
			slot, s.freeSlots = s.freeSlots[n-1], s.freeSlots[:n-1]
		} else {
			slot = int64(len(s.ticketCounts))
			s.ticketCounts = append(s.ticketCounts, ticketCounts{})
		}
		s.tickets.Put(key, slot)
	}
	s.ticketCounts[slot][req.stage]++

	// A fresh request retries generation of every chunk it depends on.
	for _, pos := range chunk.Square(req.pos, dependencyRadius(req.stage)) {
		if e, ok := s.entries[pos]; ok {
			e.failed = ""
		}
	}
	s.dirty = true
	e := s.entry(req.pos)
	if e.ch != nil && e.stage >= req.stage {
		req.reply(e.ch, nil)
		return
	}
	e.waiters = append(e.waiters, req)
}

// release removes a ticket for stage of the chunk at pos. The target of the
// chunk drops to the highest stage still requested, and the chunk is unloaded
// by the next unload pass if nothing else needs it.
func (s *scheduler) release(pos chunk.Pos, stage chunk.Stage) {
	key := pos.Pack()
	slot, ok := s.tickets.Get(key)
	if !ok || stage > chunk.StageFull || s.ticketCounts[slot][stage] == 0 {
		s.w.conf.Log.Warn("release chunk: no ticket held", "X", pos[0], "Z", pos[1], "stage", stage)
		return
	}
	counts := &s.ticketCounts[slot]
	if counts[stage]--; counts.max() == chunk.StageNone {
		s.tickets.Del(key)
		s.freeSlots = append(s.freeSlots, slot)
	}
	s.dirty = true
}

// entry returns the entry at pos, creating it and requesting the chunk from
// the read worker if it does not yet exist.
func (s *scheduler) entry(pos chunk.Pos) *entry {
	e, ok := s.entries[pos]
	if !ok {
		e = &entry{loading: true}
		s.entries[pos] = e
		s.pendingLoads = append(s.pendingLoads, pos)
	}
	return e
}

// receive processes a message of a worker.
func (s *scheduler) receive(msg RecvChunk) {
	s.dirty = true
	switch msg := msg.(type) {
	case IOChunk:
		e, ok := s.entries[msg.Pos]
		if !ok || !e.loading {
			s.w.conf.Log.Warn("load chunk: unexpected chunk", "X", msg.Pos[0], "Z", msg.Pos[1])
			s.w.locks.release(msg.Pos)
			return
		}
		e.loading = false
		s.putBack(msg.Chunk)
	case GeneratedCache:
		s.inflight--
		s.w.metrics.incAdvance(msg.Stage)
		chunks := msg.Cache.TakeAll()
		(*s.w.handler.Load()).HandleChunkGenerated(msg.Pos, msg.Stage)
		for _, ch := range chunks {
			s.putBack(ch)
		}
	case GenerationFailure:
		s.inflight--
		s.w.metrics.incFailure(msg.Stage)
		(*s.w.handler.Load()).HandleGenerationFailure(msg)
		for _, ch := range msg.Cache.TakeAll() {
			s.putBack(ch)
		}
		e := s.entries[msg.Pos]
		e.failed = msg.Message
		s.fail(e, ErrGenerationFailed)
	}
}

// putBack returns ownership of ch to its entry and replies to the requests
// it now satisfies.
func (s *scheduler) putBack(ch chunk.Chunk) {
	e := s.entries[ch.Pos()]
	if ch.Stage() < e.stage {
		s.w.conf.Log.Error("chunk stage decreased", "X", ch.Pos()[0], "Z", ch.Pos()[1], "from", e.stage, "to", ch.Stage())
	}
	e.ch, e.stage = ch, max(e.stage, ch.Stage())

	waiting := e.waiters[:0]
	for _, req := range e.waiters {
		if e.stage >= req.stage {
			req.reply(e.ch, nil)
			continue
		}
		waiting = append(waiting, req)
	}
	clear(e.waiters[len(waiting):])
	e.waiters = waiting
}

// fail replies to every request waiting on e with err.
func (s *scheduler) fail(e *entry, err error) {
	for _, req := range e.waiters {
		req.reply(nil, err)
	}
	e.waiters = nil
}

// recompute derives the target stage of every position from the tickets.
// Requests waiting on chunks that depend on a chunk whose generation failed
// are failed too.
func (s *scheduler) recompute() {
	s.dirty = false
	clear(s.targets)
	clear(s.blocked)
	for kv := range s.tickets.Items() {
		pos, stage := chunk.Unpack(kv[0]), s.ticketCounts[kv[1]].max()
		if s.propagate(pos, stage) {
			if e, ok := s.entries[pos]; ok && len(e.waiters) > 0 {
				s.fail(e, ErrGenerationFailed)
			}
		}
	}
}

// propagate raises the target of pos to target and the targets of the chunks
// that must be generated first. It returns true if a chunk that must be
// advanced failed to generate.
func (s *scheduler) propagate(pos chunk.Pos, target chunk.Stage) bool {
	if have, ok := s.targets[pos]; ok && have >= target {
		return s.blocked[pos]
	}
	s.targets[pos] = target

	e, ok := s.entries[pos]
	if !ok {
		s.entry(pos)
		return false
	}
	if e.loading || e.stage >= target {
		return false
	}
	if e.failed != "" {
		s.blocked[pos] = true
		return true
	}
	blocked := false
	for st := target; st > e.stage; st = st.Prev() {
		need := st.Prev()
		for _, n := range chunk.Square(pos, st.DirectRadius()) {
			if n != pos && s.propagate(n, need) {
				blocked = true
			}
		}
	}
	if blocked {
		s.blocked[pos] = true
	}
	return blocked
}

// schedule starts a generation job for every chunk below its target whose
// window is complete and not claimed by another job.
func (s *scheduler) schedule() {
	for pos, target := range s.targets {
		e, ok := s.entries[pos]
		if !ok || e.ch == nil || e.failed != "" || e.stage >= target {
			continue
		}
		next := e.stage.Next()
		if s.windowReady(pos, next) {
			s.claim(pos, next)
		}
	}
}

// windowReady reports if every chunk in the window needed to advance pos to
// next is resident, unclaimed and at a stage satisfying next.
func (s *scheduler) windowReady(pos chunk.Pos, next chunk.Stage) bool {
	deps := next.DirectDependencies()
	for _, n := range chunk.Square(pos, next.CacheRadius()) {
		e, ok := s.entries[n]
		if !ok || e.ch == nil {
			return false
		}
		if n == pos || n.Distance(pos) > next.DirectRadius() {
			continue
		}
		for _, dep := range deps {
			if e.stage < dep {
				return false
			}
		}
	}
	return true
}

// claim moves the window around pos into a cache and queues a job advancing
// pos to next.
func (s *scheduler) claim(pos chunk.Pos, next chunk.Stage) {
	c := gen.NewCache(pos, next, s.w.conf.Registry)
	for _, n := range c.Positions() {
		e := s.entries[n]
		_ = c.Put(e.ch)
		e.ch = nil
	}
	s.inflight++
	s.enqueueGeneration(generationJob{ID: uuid.New(), Pos: pos, Stage: next, Cache: c})
}

// unloadUnused hands every chunk that is neither requested nor needed by a
// requested chunk to the write worker.
func (s *scheduler) unloadUnused() {
	if s.dirty {
		s.recompute()
	}
	var batch []SaveEntry
	for pos, e := range s.entries {
		if _, needed := s.targets[pos]; needed || e.ch == nil || len(e.waiters) > 0 {
			continue
		}
		batch = append(batch, SaveEntry{Pos: pos, Chunk: e.ch})
		delete(s.entries, pos)
	}
	s.save(batch)
}

// save sends entries to the write worker in batches.
func (s *scheduler) save(entries []SaveEntry) {
	size := s.w.conf.SaveBatchSize
	for len(entries) > 0 {
		n := min(size, len(entries))
		s.w.saveQueue <- entries[:n:n]
		entries = entries[n:]
	}
}

// shutdown fails every waiting request, waits for the workers to hand back
// all chunks and unloads every chunk.
func (s *scheduler) shutdown() {
	for _, e := range s.entries {
		s.fail(e, ErrClosed)
	}
	s.w.cancelReads()

	for _, job := range s.pendingJobs {
		s.inflight--
		for _, ch := range job.Cache.TakeAll() {
			s.putBack(ch)
		}
	}
	s.pendingJobs = nil

	readersDone := s.w.readersDone
	for s.inflight > 0 || readersDone != nil {
		select {
		case msg := <-s.w.recv:
			s.receive(msg)
		case <-readersDone:
			readersDone = nil
		}
	}
	close(s.w.genQueue)

	batch := make([]SaveEntry, 0, len(s.entries))
	for pos, e := range s.entries {
		if e.ch != nil {
			batch = append(batch, SaveEntry{Pos: pos, Chunk: e.ch})
		}
	}
	clear(s.entries)
	s.save(batch)
	close(s.w.saveQueue)
}

// dependencyRadius returns the radius of chunks around a chunk that may have
// to be generated for it to reach stage.
func dependencyRadius(stage chunk.Stage) int {
	r := 0
	for st := stage; st > chunk.StageEmpty; st = st.Prev() {
		r += st.DirectRadius()
	}
	return r
}
