package world

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dm-vev/adamant/server/world/chunk"
)

// positionLocks grants exclusive ownership of chunk positions to the workers
// that load and save them. A position is acquired by the read worker before it
// fetches a chunk and released by the write worker once the chunk has been
// saved, so that a chunk is never fetched while a save of it is in flight.
type positionLocks struct {
	log *slog.Logger

	mu      sync.Mutex
	entries map[chunk.Pos]*lockEntry
}

// lockEntry is held in the table for as long as anyone holds or waits on its
// position.
type lockEntry struct {
	// refs counts the holder and all waiters.
	refs int
	held bool
	// notify is closed and replaced every time the position is released.
	notify chan struct{}
}

func newPositionLocks(log *slog.Logger) *positionLocks {
	return &positionLocks{log: log, entries: make(map[chunk.Pos]*lockEntry)}
}

// acquire blocks until no other worker holds pos and then takes ownership of
// it. If ctx is cancelled while waiting, acquire gives up and returns
// ctx.Err().
func (l *positionLocks) acquire(ctx context.Context, pos chunk.Pos) error {
	l.mu.Lock()
	e, ok := l.entries[pos]
	if !ok {
		e = &lockEntry{notify: make(chan struct{})}
		l.entries[pos] = e
	}
	e.refs++
	for e.held {
		notify := e.notify
		l.mu.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			l.mu.Lock()
			l.drop(pos, e)
			l.mu.Unlock()
			return ctx.Err()
		}
		l.mu.Lock()
	}
	e.held = true
	l.mu.Unlock()
	return nil
}

// release gives up ownership of pos and wakes every worker waiting on it.
// Releasing a position that is not held is logged and otherwise ignored.
func (l *positionLocks) release(pos chunk.Pos) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[pos]
	if !ok || !e.held {
		l.log.Warn("release chunk lock: position not held", "X", pos[0], "Z", pos[1])
		return
	}
	e.held = false
	close(e.notify)
	e.notify = make(chan struct{})
	l.drop(pos, e)
}

// drop removes one reference from e, deleting it once nobody holds or waits on
// it. l.mu must be held.
func (l *positionLocks) drop(pos chunk.Pos, e *lockEntry) {
	if e.refs--; e.refs == 0 {
		delete(l.entries, pos)
	}
}

// len returns the number of positions held or waited on.
func (l *positionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
