package mcdb

import (
	"encoding/binary"

	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

const (
	// keyVersion holds the storage format version the database was written
	// with.
	keyVersion = "AdamantVersion"
	// keyChunk is the tag appended to the keys of chunk records.
	keyChunk = 'c'
)

const (
	// formatZstd marks values that hold a zstd compressed little-endian NBT
	// record.
	formatZstd = 1
	// headerSize is the size of the format byte and checksum that precede
	// every chunk payload.
	headerSize = 1 + 8
)

// index returns the key that the chunk at pos is stored under. Keys of the
// overworld omit the dimension, matching the layout of Bedrock Edition
// worlds.
func (db *DB) index(pos chunk.Pos) []byte {
	dim := dimensionID(db.conf.Dim)
	key := make([]byte, 0, 13)
	key = binary.LittleEndian.AppendUint32(key, uint32(pos[0]))
	key = binary.LittleEndian.AppendUint32(key, uint32(pos[1]))
	if dim != 0 {
		key = binary.LittleEndian.AppendUint32(key, uint32(dim))
	}
	return append(key, keyChunk)
}

// dimensionID returns the numeric ID of dim used in keys.
func dimensionID(dim gen.Dimension) int32 {
	switch dim.Name {
	case gen.Nether.Name:
		return 1
	case gen.End.Name:
		return 2
	}
	return 0
}
