package populate

import (
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
)

// Populator places features in the chunk at pos. Blocks are set through the
// generation cache, so features may spill into the chunks around pos as far as
// the cache allows.
type Populator interface {
	Populate(c *gen.Cache, pos chunk.Pos, r *gen.Random)
}
