package server

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dm-vev/adamant/server/world"
	"github.com/dm-vev/adamant/server/world/anvil"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/dm-vev/adamant/server/world/mcdb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.toml")
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if c != DefaultConfig() {
		t.Fatalf("expected default config, got %+v", c)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	if !strings.Contains(string(contents), "[Generation]") {
		t.Fatalf("expected generation section in written config:\n%s", contents)
	}

	// Loading the written file yields the same configuration.
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if again != c {
		t.Fatalf("expected reloaded config %+v, got %+v", c, again)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[World]
Provider = "memory"
Seed = 1234
Lighting = "full"
Dimension = "nether"

[Generation]
Workers = 3
UnloadInterval = "1m"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	uc, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if uc.World.Folder != "world" || uc.Generation.SaveBatchSize != 64 {
		t.Fatalf("expected missing values to keep their defaults, got %+v", uc)
	}

	conf, err := uc.Config(discardLogger())
	if err != nil {
		t.Fatalf("convert config: %v", err)
	}
	if conf.Seed != 1234 || conf.Lighting != chunk.LightingFull || conf.Dim.Name != gen.Nether.Name {
		t.Fatalf("unexpected world config %+v", conf)
	}
	if conf.GeneratorWorkers != 3 || conf.UnloadInterval != time.Minute {
		t.Fatalf("unexpected generation settings %+v", conf)
	}
	if _, ok := conf.Provider.(*world.MemoryProvider); !ok {
		t.Fatalf("expected memory provider, got %T", conf.Provider)
	}
}

func TestConfigProviders(t *testing.T) {
	for name, check := range map[string]func(world.Provider) bool{
		"leveldb": func(p world.Provider) bool { _, ok := p.(*mcdb.DB); return ok },
		"anvil":   func(p world.Provider) bool { _, ok := p.(*anvil.Provider); return ok },
		"none":    func(p world.Provider) bool { _, ok := p.(world.NopProvider); return ok },
	} {
		t.Run(name, func(t *testing.T) {
			uc := DefaultConfig()
			uc.World.Folder = t.TempDir()
			uc.World.Provider = name
			conf, err := uc.Config(discardLogger())
			if err != nil {
				t.Fatalf("convert config: %v", err)
			}
			defer conf.Provider.Close()
			if !check(conf.Provider) {
				t.Fatalf("unexpected provider %T", conf.Provider)
			}
		})
	}
}

func TestConfigRejectsInvalidValues(t *testing.T) {
	for name, edit := range map[string]func(*UserConfig){
		"provider":  func(uc *UserConfig) { uc.World.Provider = "floppy" },
		"dimension": func(uc *UserConfig) { uc.World.Dimension = "aether" },
		"lighting":  func(uc *UserConfig) { uc.World.Lighting = "neon" },
		"interval":  func(uc *UserConfig) { uc.Generation.UnloadInterval = "soon" },
	} {
		t.Run(name, func(t *testing.T) {
			uc := DefaultConfig()
			uc.World.Provider = "none"
			edit(&uc)
			if _, err := uc.Config(discardLogger()); err == nil {
				t.Fatalf("expected invalid %v to be rejected", name)
			}
		})
	}
}
