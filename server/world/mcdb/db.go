package mcdb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/cespare/xxhash/v2"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/dm-vev/adamant/server/world"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/klauspost/compress/zstd"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// Version is the version of the storage format written by this package.
// Databases with a different major version, or a newer version, are refused.
const Version = "v1.0.0"

var (
	// ErrCorrupt is returned for chunks whose stored data does not match its
	// checksum or cannot be decoded.
	ErrCorrupt = errors.New("mcdb: corrupt chunk data")
	// ErrIncompatible is returned by Config.Open for databases written in an
	// incompatible storage format.
	ErrIncompatible = errors.New("mcdb: incompatible storage format")
)

// DB implements a world provider for chunks stored in a LevelDB database.
// Every chunk is stored under a single key as a little-endian NBT record,
// compressed with zstd and guarded by an xxhash checksum.
type DB struct {
	conf Config
	dir  string
	ldb  *leveldb.DB

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Compile time check to make sure DB implements world.Provider.
var _ world.Provider = (*DB)(nil)

// Open creates a new DB with the default Config, reading and writing from/to
// files under the path passed.
func Open(dir string) (*DB, error) {
	var conf Config
	return conf.Open(dir)
}

// LDB returns the underlying LevelDB database.
func (db *DB) LDB() *leveldb.DB {
	return db.ldb
}

// FetchChunks reads the chunks at the positions passed. Chunks that are not
// stored are reported missing, and chunks that cannot be read or decoded are
// reported as errors.
func (db *DB) FetchChunks(ctx context.Context, positions []chunk.Pos) iter.Seq[world.FetchResult] {
	return func(yield func(world.FetchResult) bool) {
		for _, pos := range positions {
			if ctx.Err() != nil {
				return
			}
			if !yield(db.fetch(pos)) {
				return
			}
		}
	}
}

func (db *DB) fetch(pos chunk.Pos) world.FetchResult {
	data, err := db.ldb.Get(db.index(pos), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return world.FetchResult{Pos: pos, Kind: world.FetchMissing}
	} else if err != nil {
		return world.FetchResult{Pos: pos, Kind: world.FetchError, Err: fmt.Errorf("read chunk %v: %w", pos, err)}
	}
	l, err := db.decode(pos, data)
	if err != nil {
		return world.FetchResult{Pos: pos, Kind: world.FetchError, Err: err}
	}
	return world.FetchResult{Pos: pos, Kind: world.FetchLoaded, Chunk: l}
}

// SaveChunks writes the chunks passed in a single batch.
func (db *DB) SaveChunks(_ context.Context, entries []world.SaveEntry) error {
	batch := new(leveldb.Batch)
	saved := make([]*chunk.LevelChunk, 0, len(entries))
	for _, e := range entries {
		l := e.Level()
		if l == nil {
			return fmt.Errorf("save chunk %v: %T is not finalised", e.Pos, e.Chunk)
		}
		data, err := db.encode(l)
		if err != nil {
			return fmt.Errorf("save chunk %v: %w", e.Pos, err)
		}
		batch.Put(db.index(e.Pos), data)
		saved = append(saved, l)
	}
	if err := db.ldb.Write(batch, nil); err != nil {
		return fmt.Errorf("save chunks: leveldb: %w", err)
	}
	for _, l := range saved {
		l.MarkSaved()
	}
	return nil
}

// Close closes the DB.
func (db *DB) Close() error {
	db.enc.Close()
	db.dec.Close()
	if err := db.ldb.Close(); err != nil {
		return fmt.Errorf("close db: leveldb: %w", err)
	}
	return nil
}

// encode encodes l into the value stored in the database: a format byte, the
// xxhash checksum of the payload and the zstd compressed NBT record.
func (db *DB) encode(l *chunk.LevelChunk) ([]byte, error) {
	rec, err := nbt.MarshalEncoding(chunk.ToRecord(l), nbt.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("encode nbt: %w", err)
	}
	data := make([]byte, headerSize, headerSize+len(rec)/2)
	data[0] = formatZstd
	data = db.enc.EncodeAll(rec, data)
	binary.LittleEndian.PutUint64(data[1:headerSize], xxhash.Sum64(data[headerSize:]))
	return data, nil
}

// decode decodes the value stored for pos.
func (db *DB) decode(pos chunk.Pos, data []byte) (*chunk.LevelChunk, error) {
	if len(data) < headerSize || data[0] != formatZstd {
		return nil, fmt.Errorf("chunk %v: %w: unknown format", pos, ErrCorrupt)
	}
	payload := data[headerSize:]
	if sum := binary.LittleEndian.Uint64(data[1:headerSize]); sum != xxhash.Sum64(payload) {
		return nil, fmt.Errorf("chunk %v: %w: checksum mismatch", pos, ErrCorrupt)
	}
	raw, err := db.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("chunk %v: %w: zstd: %v", pos, ErrCorrupt, err)
	}
	var rec chunk.Record
	if err := nbt.UnmarshalEncoding(raw, &rec, nbt.LittleEndian); err != nil {
		return nil, fmt.Errorf("chunk %v: %w: nbt: %v", pos, ErrCorrupt, err)
	}
	if (chunk.Pos{rec.X, rec.Z}) != pos {
		return nil, fmt.Errorf("chunk %v: %w: record holds chunk %v", pos, ErrCorrupt, chunk.Pos{rec.X, rec.Z})
	}
	l, err := chunk.FromRecord(rec, db.conf.Dim.Range)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return l, nil
}
