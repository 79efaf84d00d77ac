package world

import (
	"sync"

	"github.com/dm-vev/adamant/server/world/chunk"
)

// Metrics tracks counters of the chunk pipeline for observability. A nil
// *Metrics discards all updates.
type Metrics struct {
	mu sync.Mutex

	advances     map[chunk.Stage]uint64
	failures     map[chunk.Stage]uint64
	loads        map[LoadOutcome]uint64
	saves        uint64
	saveFailures uint64
	backpressure uint64
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{
		advances: make(map[chunk.Stage]uint64),
		failures: make(map[chunk.Stage]uint64),
		loads:    make(map[LoadOutcome]uint64),
	}
}

// MetricsSnapshot is a copy of the counters of a Metrics value at one point
// in time.
type MetricsSnapshot struct {
	// Advances holds the number of chunks advanced to each stage.
	Advances map[chunk.Stage]uint64
	// Failures holds the number of generation jobs that failed per stage.
	Failures map[chunk.Stage]uint64
	// Loads holds the number of chunks loaded per outcome.
	Loads map[LoadOutcome]uint64
	// Saves is the number of chunks written to the provider.
	Saves        uint64
	SaveFailures uint64
	// Backpressure counts generation jobs that found the queue full.
	Backpressure uint64
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetricsSnapshot{
		Advances:     make(map[chunk.Stage]uint64, len(m.advances)),
		Failures:     make(map[chunk.Stage]uint64, len(m.failures)),
		Loads:        make(map[LoadOutcome]uint64, len(m.loads)),
		Saves:        m.saves,
		SaveFailures: m.saveFailures,
		Backpressure: m.backpressure,
	}
	for k, v := range m.advances {
		s.Advances[k] = v
	}
	for k, v := range m.failures {
		s.Failures[k] = v
	}
	for k, v := range m.loads {
		s.Loads[k] = v
	}
	return s
}

func (m *Metrics) incAdvance(s chunk.Stage) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.advances[s]++
	m.mu.Unlock()
}

func (m *Metrics) incFailure(s chunk.Stage) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.failures[s]++
	m.mu.Unlock()
}

func (m *Metrics) incLoad(o LoadOutcome) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.loads[o]++
	m.mu.Unlock()
}

func (m *Metrics) addSaves(n int) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	m.saves += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) incSaveFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.saveFailures++
	m.mu.Unlock()
}

// incBackpressure increments the backpressure counter and returns the new
// total.
func (m *Metrics) incBackpressure() uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backpressure++
	return m.backpressure
}
