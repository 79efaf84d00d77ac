// Package anvil implements a world provider that stores chunks in region
// files of the Anvil format used by Java Edition. Every chunk is stored as a
// big-endian NBT record in the sector of its region file.
package anvil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Tnze/go-mc/nbt"
	"github.com/Tnze/go-mc/save/region"
	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Compression is the compression scheme of a chunk sector, as identified by
// the first byte of the sector.
type Compression byte

const (
	CompressionGzip Compression = 1
	CompressionZlib Compression = 2
	CompressionNone Compression = 3
	CompressionLZ4  Compression = 4
)

// String ...
func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	}
	return fmt.Sprintf("Compression(%d)", byte(c))
}

// ErrCorrupt is returned for chunks whose sector cannot be decoded.
var ErrCorrupt = errors.New("anvil: corrupt chunk data")

// Config holds the optional parameters of a Provider.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, slog.Default() is used.
	Log *slog.Logger
	// Dim is the dimension whose chunks are stored. Each dimension has its
	// own region directory. If its range is empty, gen.Overworld is used.
	Dim gen.Dimension
	// Compression is the compression used for chunks written. Chunks are read
	// regardless of their compression. If 0, CompressionZlib is used.
	Compression Compression
}

// Provider implements world.Provider for a directory of region files.
type Provider struct {
	conf Config
	dir  string

	mu      sync.Mutex
	regions map[[2]int]*region.Region
}

// Compile time check to make sure Provider implements world.Provider.
var _ world.Provider = (*Provider)(nil)

// Open returns a Provider storing region files of the configured dimension
// under the world directory passed. The directory is created if it does not
// exist.
func (conf Config) Open(dir string) (*Provider, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Dim.Range == (cube.Range{}) {
		conf.Dim = gen.Overworld
	}
	if conf.Compression == 0 {
		conf.Compression = CompressionZlib
	}
	conf.Log = conf.Log.With("provider", "anvil")

	dir = filepath.Join(dir, dimensionDir(conf.Dim), "region")
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, fmt.Errorf("create region directory: %w", err)
	}
	return &Provider{conf: conf, dir: dir, regions: make(map[[2]int]*region.Region)}, nil
}

// dimensionDir returns the directory, relative to the world directory, that
// holds the region directory of dim.
func dimensionDir(dim gen.Dimension) string {
	switch dim.Name {
	case gen.Nether.Name:
		return "DIM-1"
	case gen.End.Name:
		return "DIM1"
	}
	return "."
}

// FetchChunks reads the chunks at the positions passed.
func (p *Provider) FetchChunks(ctx context.Context, positions []chunk.Pos) iter.Seq[world.FetchResult] {
	return func(yield func(world.FetchResult) bool) {
		for _, pos := range positions {
			if ctx.Err() != nil {
				return
			}
			if !yield(p.fetch(pos)) {
				return
			}
		}
	}
}

func (p *Provider) fetch(pos chunk.Pos) world.FetchResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, err := p.region(pos, false)
	if err != nil {
		return world.FetchResult{Pos: pos, Kind: world.FetchError, Err: err}
	}
	x, z := region.In(int(pos[0]), int(pos[1]))
	if r == nil || !r.ExistSector(x, z) {
		return world.FetchResult{Pos: pos, Kind: world.FetchMissing}
	}
	data, err := r.ReadSector(x, z)
	if err != nil {
		return world.FetchResult{Pos: pos, Kind: world.FetchError, Err: fmt.Errorf("read chunk %v: %w", pos, err)}
	}
	l, err := p.decode(pos, data)
	if err != nil {
		return world.FetchResult{Pos: pos, Kind: world.FetchError, Err: err}
	}
	return world.FetchResult{Pos: pos, Kind: world.FetchLoaded, Chunk: l}
}

// SaveChunks writes the chunks passed to their region files.
func (p *Provider) SaveChunks(_ context.Context, entries []world.SaveEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, e := range entries {
		l := e.Level()
		if l == nil {
			errs = append(errs, fmt.Errorf("save chunk %v: %T is not finalised", e.Pos, e.Chunk))
			continue
		}
		if err := p.save(e.Pos, l); err != nil {
			errs = append(errs, err)
			continue
		}
		l.MarkSaved()
	}
	return errors.Join(errs...)
}

func (p *Provider) save(pos chunk.Pos, l *chunk.LevelChunk) error {
	data, err := p.encode(l)
	if err != nil {
		return fmt.Errorf("save chunk %v: %w", pos, err)
	}
	r, err := p.region(pos, true)
	if err != nil {
		return err
	}
	x, z := region.In(int(pos[0]), int(pos[1]))
	if err := r.WriteSector(x, z, data); err != nil {
		return fmt.Errorf("save chunk %v: %w", pos, err)
	}
	return nil
}

// Close closes every open region file.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for k, r := range p.regions {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close region %v: %w", k, err))
		}
		delete(p.regions, k)
	}
	return errors.Join(errs...)
}

// region returns the open region file holding pos. If create is false and the
// file does not exist, region returns nil and no error. p.mu must be held.
func (p *Provider) region(pos chunk.Pos, create bool) (*region.Region, error) {
	rx, rz := region.At(int(pos[0]), int(pos[1]))
	k := [2]int{rx, rz}
	if r, ok := p.regions[k]; ok {
		return r, nil
	}
	path := filepath.Join(p.dir, fmt.Sprintf("r.%d.%d.mca", rx, rz))
	r, err := region.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if !create {
			return nil, nil
		}
		r, err = region.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open region %v: %w", path, err)
	}
	p.conf.Log.Debug("opened region file", "X", rx, "Z", rz)
	p.regions[k] = r
	return r, nil
}

// encode encodes l into the contents of its sector: the compression byte
// followed by the compressed NBT record.
func (p *Provider) encode(l *chunk.LevelChunk) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 4096))
	buf.WriteByte(byte(p.conf.Compression))

	var w io.WriteCloser
	switch p.conf.Compression {
	case CompressionGzip:
		w = gzip.NewWriter(buf)
	case CompressionZlib:
		w = zlib.NewWriter(buf)
	case CompressionLZ4:
		w = lz4.NewWriter(buf)
	case CompressionNone:
		w = nopCloser{buf}
	default:
		return nil, fmt.Errorf("unsupported compression %v", p.conf.Compression)
	}
	if err := nbt.NewEncoder(w).Encode(chunk.ToRecord(l), ""); err != nil {
		return nil, fmt.Errorf("encode nbt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// decode decodes the contents of the sector of pos.
func (p *Provider) decode(pos chunk.Pos, data []byte) (*chunk.LevelChunk, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("chunk %v: %w: empty sector", pos, ErrCorrupt)
	}
	var (
		r   io.Reader
		err error
		in  = bytes.NewReader(data[1:])
	)
	switch c := Compression(data[0]); c {
	case CompressionGzip:
		r, err = gzip.NewReader(in)
	case CompressionZlib:
		r, err = zlib.NewReader(in)
	case CompressionLZ4:
		r = lz4.NewReader(in)
	case CompressionNone:
		r = in
	default:
		return nil, fmt.Errorf("chunk %v: %w: unknown compression %v", pos, ErrCorrupt, c)
	}
	if err != nil {
		return nil, fmt.Errorf("chunk %v: %w: %v", pos, ErrCorrupt, err)
	}

	var rec chunk.Record
	if _, err := nbt.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("chunk %v: %w: nbt: %v", pos, ErrCorrupt, err)
	}
	if (chunk.Pos{rec.X, rec.Z}) != pos {
		return nil, fmt.Errorf("chunk %v: %w: sector holds chunk %v", pos, ErrCorrupt, chunk.Pos{rec.X, rec.Z})
	}
	l, err := chunk.FromRecord(rec, p.conf.Dim.Range)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return l, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
