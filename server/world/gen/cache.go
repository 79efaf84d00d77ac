package gen

import (
	"fmt"

	"github.com/dm-vev/adamant/server/world/chunk"
)

// Cache is the window of chunks handed to a single generation job. It covers a
// square of chunks around a centre chunk, large enough for the read and write
// radius of the stage being advanced. A Cache owns the chunks put into it
// until they are taken out again, and is used by one goroutine at a time.
type Cache struct {
	origin chunk.Pos
	size   int
	stage  chunk.Stage
	reg    chunk.BlockRegistry

	chunks []chunk.Chunk
}

// NewCache returns an empty Cache for advancing the chunk at centre to stage.
// Chunks must be added with Put before Advance is called.
func NewCache(centre chunk.Pos, stage chunk.Stage, reg chunk.BlockRegistry) *Cache {
	r := stage.CacheRadius()
	size := 2*r + 1
	return &Cache{
		origin: centre.Add(int32(-r), int32(-r)),
		size:   size,
		stage:  stage,
		reg:    reg,
		chunks: make([]chunk.Chunk, size*size),
	}
}

// Stage returns the stage the Cache was created to advance its centre to.
func (c *Cache) Stage() chunk.Stage {
	return c.stage
}

// Centre returns the position of the chunk being advanced.
func (c *Cache) Centre() chunk.Pos {
	r := int32(c.size / 2)
	return c.origin.Add(r, r)
}

// Size returns the side length of the window in chunks.
func (c *Cache) Size() int {
	return c.size
}

// Positions returns every position covered by the window, whether it holds a
// chunk or not.
func (c *Cache) Positions() []chunk.Pos {
	return chunk.Square(c.Centre(), c.size/2)
}

// Len returns the number of chunks held.
func (c *Cache) Len() int {
	n := 0
	for _, ch := range c.chunks {
		if ch != nil {
			n++
		}
	}
	return n
}

// Contains reports if pos lies within the window.
func (c *Cache) Contains(pos chunk.Pos) bool {
	_, ok := c.index(pos)
	return ok
}

// Chunk returns the chunk held at pos.
func (c *Cache) Chunk(pos chunk.Pos) (chunk.Chunk, bool) {
	i, ok := c.index(pos)
	if !ok || c.chunks[i] == nil {
		return nil, false
	}
	return c.chunks[i], true
}

// Put adds ch to the window at its own position, replacing any chunk held
// there. Put returns an error if the position lies outside the window.
func (c *Cache) Put(ch chunk.Chunk) error {
	i, ok := c.index(ch.Pos())
	if !ok {
		return fmt.Errorf("put chunk %v: outside window of %v chunks around %v", ch.Pos(), c.size, c.Centre())
	}
	c.chunks[i] = ch
	return nil
}

// Take removes the chunk at pos from the window and returns it, leaving the
// slot empty.
func (c *Cache) Take(pos chunk.Pos) (chunk.Chunk, bool) {
	i, ok := c.index(pos)
	if !ok || c.chunks[i] == nil {
		return nil, false
	}
	ch := c.chunks[i]
	c.chunks[i] = nil
	return ch, true
}

// TakeAll removes every chunk from the window and returns them.
func (c *Cache) TakeAll() []chunk.Chunk {
	out := make([]chunk.Chunk, 0, len(c.chunks))
	for i, ch := range c.chunks {
		if ch != nil {
			out = append(out, ch)
			c.chunks[i] = nil
		}
	}
	return out
}

func (c *Cache) index(pos chunk.Pos) (int, bool) {
	dx, dz := int(pos[0]-c.origin[0]), int(pos[1]-c.origin[1])
	if dx < 0 || dz < 0 || dx >= c.size || dz >= c.size {
		return 0, false
	}
	return dz*c.size + dx, true
}
