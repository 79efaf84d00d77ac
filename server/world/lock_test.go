package world

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dm-vev/adamant/server/world/chunk"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLockExcludesSecondHolder(t *testing.T) {
	l := newPositionLocks(discardLogger())
	pos := chunk.Pos{3, -2}
	if err := l.acquire(context.Background(), pos); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan error, 1)
	go func() { acquired <- l.acquire(context.Background(), pos) }()

	select {
	case <-acquired:
		t.Fatalf("second acquire returned while the position was held")
	case <-time.After(50 * time.Millisecond):
	}
	if n := l.len(); n != 1 {
		t.Fatalf("expected 1 entry while held and waited on, got %v", n)
	}

	l.release(pos)
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("second acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("second acquire never returned after release")
	}
	l.release(pos)
	if n := l.len(); n != 0 {
		t.Fatalf("expected empty lock table, got %v entries", n)
	}
}

func TestLockAcquireCancelled(t *testing.T) {
	l := newPositionLocks(discardLogger())
	pos := chunk.Pos{0, 0}
	if err := l.acquire(context.Background(), pos); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	acquired := make(chan error, 1)
	go func() { acquired <- l.acquire(ctx, pos) }()
	cancel()

	select {
	case err := <-acquired:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("cancelled acquire never returned")
	}
	l.release(pos)
	if n := l.len(); n != 0 {
		t.Fatalf("expected empty lock table, got %v entries", n)
	}
}

func TestLockUnmatchedReleaseIsIgnored(t *testing.T) {
	l := newPositionLocks(discardLogger())
	l.release(chunk.Pos{1, 1})
	if n := l.len(); n != 0 {
		t.Fatalf("expected empty lock table, got %v entries", n)
	}
	if err := l.acquire(context.Background(), chunk.Pos{1, 1}); err != nil {
		t.Fatalf("acquire after unmatched release: %v", err)
	}
	l.release(chunk.Pos{1, 1})
}
