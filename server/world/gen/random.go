package gen

import (
	"math/rand/v2"

	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/segmentio/fasthash/fnv1a"
)

// RandomConfig derives deterministic random streams from the world seed.
type RandomConfig struct {
	Seed int64
}

// ForChunk returns a random stream unique to the chunk and purpose passed.
// The same seed, position and salt always produce the same stream,
// regardless of the order chunks are generated in.
func (r RandomConfig) ForChunk(pos chunk.Pos, salt string) *Random {
	h := fnv1a.AddString64(fnv1a.Init64, salt)
	h = fnv1a.AddUint64(h, uint64(r.Seed))
	h = fnv1a.AddUint64(h, uint64(uint32(pos[0])))
	h = fnv1a.AddUint64(h, uint64(uint32(pos[1])))
	return &Random{Rand: rand.New(rand.NewPCG(h, uint64(r.Seed)))}
}

// Random is a seeded random stream used by generation stages.
type Random struct {
	*rand.Rand
}

// Range returns a random number in [min, max].
func (r *Random) Range(min, max int32) int32 {
	if max <= min {
		return min
	}
	return min + r.Int32N(max-min+1)
}
