// Package server turns the user configuration of a world, as stored in a TOML
// file, into a world.Config with its provider and generator set up.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dm-vev/adamant/server/world"
	"github.com/dm-vev/adamant/server/world/anvil"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/dm-vev/adamant/server/world/generator/pmgen"
	"github.com/dm-vev/adamant/server/world/mcdb"
	"github.com/pelletier/go-toml"
)

// UserConfig is the user configuration of a world. It holds settings that
// affect where chunks are stored and how they are generated. UserConfig may
// be serialised and can be converted to a world.Config by calling
// UserConfig.Config().
type UserConfig struct {
	World struct {
		// Folder is the folder that the data of the world resides in.
		Folder string
		// Provider is the storage used for chunks. Valid values are
		// "leveldb", "anvil", "memory" and "none".
		Provider string
		// Seed controls the procedural generation of the world. The value is
		// passed directly to the terrain generator.
		Seed int64
		// Lighting controls how generated chunks are lit. Valid values are
		// "default", "full" and "dark".
		Lighting string
		// Dimension is the dimension of the world: "overworld", "nether" or
		// "end".
		Dimension string
	}
	Generation struct {
		// Workers is the number of background workers that should be
		// dedicated to generating chunks. Set to 0 to automatically select a
		// reasonable default based on the host's CPU count.
		Workers int
		// QueueSize determines how many chunk generation jobs can wait for a
		// worker. Set to 0 to use an automatically chosen size.
		QueueSize int
		// ReadWorkers is the number of workers loading chunks from the
		// provider.
		ReadWorkers int
		// SaveBatchSize is the maximum number of chunks written to the
		// provider at once.
		SaveBatchSize int
		// UnloadInterval is the interval at which unused chunks are saved and
		// unloaded, such as "10s".
		UnloadInterval string
	}
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.World.Folder = "world"
	c.World.Provider = "leveldb"
	c.World.Seed = 0
	c.World.Lighting = "default"
	c.World.Dimension = "overworld"
	c.Generation.ReadWorkers = 2
	c.Generation.SaveBatchSize = 64
	c.Generation.UnloadInterval = "10s"
	return c
}

// LoadConfig reads the UserConfig stored in the TOML file at the path passed.
// If the file does not exist yet, it is created with the values of
// DefaultConfig. Values missing from the file keep their defaults.
func LoadConfig(path string) (UserConfig, error) {
	c := DefaultConfig()
	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, writeConfig(path, c)
	} else if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

func writeConfig(path string, c UserConfig) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	encoded, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Config converts a UserConfig to a world.Config, so that it may be used for
// creating a World. An error is returned if a setting is invalid or if the
// provider could not be opened. The provider is closed by World.Close.
func (uc UserConfig) Config(log *slog.Logger) (world.Config, error) {
	if log == nil {
		log = slog.Default()
	}
	dim, ok := gen.DimensionByName(uc.World.Dimension)
	if !ok {
		return world.Config{}, fmt.Errorf("unknown dimension %q", uc.World.Dimension)
	}
	mode, err := chunk.ParseLightingMode(uc.World.Lighting)
	if err != nil {
		return world.Config{}, err
	}
	var interval time.Duration
	if s := strings.TrimSpace(uc.Generation.UnloadInterval); s != "" {
		if interval, err = time.ParseDuration(s); err != nil {
			return world.Config{}, fmt.Errorf("parse unload interval: %w", err)
		}
	}

	conf := world.Config{
		Log:                log,
		Generator:          pmgen.New(),
		Dim:                dim,
		Seed:               uc.World.Seed,
		Lighting:           mode,
		GeneratorWorkers:   uc.Generation.Workers,
		GeneratorQueueSize: uc.Generation.QueueSize,
		ReadWorkers:        uc.Generation.ReadWorkers,
		SaveBatchSize:      uc.Generation.SaveBatchSize,
		UnloadInterval:     interval,
	}
	if conf.Provider, err = uc.provider(log, dim); err != nil {
		return conf, fmt.Errorf("create world provider: %w", err)
	}
	return conf, nil
}

// provider opens the world.Provider selected by the configuration.
func (uc UserConfig) provider(log *slog.Logger, dim gen.Dimension) (world.Provider, error) {
	switch name := strings.ToLower(strings.TrimSpace(uc.World.Provider)); name {
	case "", "leveldb":
		return mcdb.Config{Log: log, Dim: dim}.Open(uc.World.Folder)
	case "anvil":
		return anvil.Config{Log: log, Dim: dim}.Open(uc.World.Folder)
	case "memory":
		return &world.MemoryProvider{}, nil
	case "none":
		return world.NopProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
