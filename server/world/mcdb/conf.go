package mcdb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/mod/semver"
)

// Config holds the optional parameters of a DB.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is used.
	Log *slog.Logger
	// Dim is the dimension whose chunks are stored. Chunks of different
	// dimensions may share a database. If its range is empty, gen.Overworld
	// is used.
	Dim gen.Dimension
	// Compression specifies the compression LevelDB applies to its blocks.
	// Chunk payloads are compressed with zstd regardless, so the default is
	// opt.NoCompression.
	Compression opt.Compression
	// BlockSize specifies the size of LevelDB blocks. If 0 or lower, 16KiB is
	// used.
	BlockSize int
	// ReadOnly opens the database in read-only mode. Saving chunks fails.
	ReadOnly bool
	// LDBOptions holds LevelDB specific default options, such as the block
	// size or compression used in the database. Fields set explicitly in
	// Config take precedence.
	LDBOptions *opt.Options
}

// Open creates a new DB reading and writing from/to files under the path
// passed. If a database does not yet exist at that path, it is created.
// Databases written by an incompatible version of the storage format are
// refused.
func (conf Config) Open(dir string) (*DB, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Dim.Range == (cube.Range{}) {
		conf.Dim = gen.Overworld
	}
	conf.Log = conf.Log.With("provider", "mcdb")
	if conf.BlockSize <= 0 {
		conf.BlockSize = 16 * opt.KiB
	}
	if err := os.MkdirAll(filepath.Join(dir, "db"), 0777); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	ldbOpts := conf.LDBOptions
	if ldbOpts == nil {
		ldbOpts = new(opt.Options)
	}
	ldbOpts.Compression = conf.Compression
	ldbOpts.BlockSize = conf.BlockSize
	ldbOpts.ReadOnly = conf.ReadOnly

	ldb, err := leveldb.OpenFile(filepath.Join(dir, "db"), ldbOpts)
	if err != nil {
		return nil, fmt.Errorf("open db: leveldb: %w", err)
	}
	db := &DB{conf: conf, dir: dir, ldb: ldb}
	if err := db.checkVersion(); err != nil {
		_ = ldb.Close()
		return nil, err
	}
	if db.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
		_ = ldb.Close()
		return nil, fmt.Errorf("open db: zstd: %w", err)
	}
	if db.dec, err = zstd.NewReader(nil); err != nil {
		_ = ldb.Close()
		return nil, fmt.Errorf("open db: zstd: %w", err)
	}
	return db, nil
}

// checkVersion verifies the storage format version of the database, writing
// the current version to new databases.
func (db *DB) checkVersion() error {
	stored, err := db.ldb.Get([]byte(keyVersion), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		if db.conf.ReadOnly {
			return nil
		}
		if err := db.ldb.Put([]byte(keyVersion), []byte(Version), nil); err != nil {
			return fmt.Errorf("write storage version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read storage version: %w", err)
	}
	v := string(stored)
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: invalid storage version %q", ErrIncompatible, v)
	}
	if semver.Major(v) != semver.Major(Version) || semver.Compare(v, Version) > 0 {
		return fmt.Errorf("%w: stored with version %v, supported up to %v", ErrIncompatible, v, Version)
	}
	return nil
}
