// Command pregen generates a square of chunks around a centre and saves them
// to the provider configured in a TOML config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dm-vev/adamant/server"
	"github.com/dm-vev/adamant/server/world"
	"github.com/dm-vev/adamant/server/world/chunk"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	var (
		path    = flag.String("config", "config.toml", "path of the TOML config file, created if missing")
		radius  = flag.Int("radius", 8, "radius in chunks of the square generated")
		centreX = flag.Int("centre-x", 0, "x coordinate of the chunk at the centre")
		centreZ = flag.Int("centre-z", 0, "z coordinate of the chunk at the centre")
		debug   = flag.Bool("debug", false, "log debug messages")
	)
	flag.Parse()

	lvl := slog.LevelInfo
	if *debug {
		lvl = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *path, chunk.Pos{int32(*centreX), int32(*centreZ)}, *radius); err != nil {
		log.Error("pregen failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, path string, centre chunk.Pos, radius int) error {
	if radius < 0 {
		return fmt.Errorf("radius must not be negative, got %v", radius)
	}
	uc, err := server.LoadConfig(path)
	if err != nil {
		return err
	}
	conf, err := uc.Config(log)
	if err != nil {
		return err
	}
	w := conf.New()
	start := time.Now()

	positions := chunk.Square(centre, radius)
	log.Info("Generating chunks...", "count", len(positions), "centre", centre, "radius", radius)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU() * 4)
	for _, pos := range positions {
		g.Go(func() error {
			defer w.Release(pos, chunk.StageFull)
			if err := w.Request(gctx, pos, chunk.StageFull); err != nil {
				return fmt.Errorf("generate chunk %v: %w", pos, err)
			}
			return nil
		})
	}
	genErr := g.Wait()
	elapsed := time.Since(start)

	log.Info("Saving chunks...")
	if err := w.Close(); err != nil {
		return err
	}
	if genErr != nil {
		return genErr
	}
	printSummary(w.Metrics(), len(positions), elapsed)
	return nil
}

func printSummary(m world.MetricsSnapshot, n int, elapsed time.Duration) {
	p := message.NewPrinter(language.English)
	var loaded uint64
	for _, c := range m.Loads {
		loaded += c
	}
	p.Printf("Generated %d chunks in %v (%.1f chunks/s).\n", n, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds())
	p.Printf("Loaded %d chunks from storage, advanced %d chunks to full, saved %d chunks.\n", loaded, m.Advances[chunk.StageFull], m.Saves)
	if m.SaveFailures > 0 || m.Backpressure > 0 {
		p.Printf("Save failures: %d, generator backpressure events: %d.\n", m.SaveFailures, m.Backpressure)
	}
	for s := chunk.StageBiomes; s <= chunk.StageFull; s++ {
		if f := m.Failures[s]; f > 0 {
			p.Printf("Failed generating %d chunks at stage %v.\n", f, s)
		}
	}
}
