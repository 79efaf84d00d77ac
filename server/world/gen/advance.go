package gen

import (
	"fmt"

	"github.com/dm-vev/adamant/server/world/chunk"
)

// DependencyError is returned by CheckDependencies and raised by Advance when
// the window of a Cache does not satisfy the dependencies of the stage being
// advanced.
type DependencyError struct {
	// Stage is the stage the centre chunk was to be advanced to.
	Stage chunk.Stage
	// Pos is the position of the centre chunk.
	Pos chunk.Pos
	// Neighbour is the position of the chunk that did not meet its
	// requirement. It equals Pos if the centre itself is at the wrong stage.
	Neighbour chunk.Pos
	// Have is the stage of the offending chunk, or StageNone if it was
	// missing from the window.
	Have chunk.Stage
	// Need is the stage the chunk must have reached.
	Need chunk.Stage
}

// Error ...
func (e *DependencyError) Error() string {
	if e.Have == chunk.StageNone {
		return fmt.Sprintf("advance %v to %v: chunk %v missing, need %v", e.Pos, e.Stage, e.Neighbour, e.Need)
	}
	return fmt.Sprintf("advance %v to %v: chunk %v at %v, need %v", e.Pos, e.Stage, e.Neighbour, e.Have, e.Need)
}

// CheckDependencies verifies that the window of c allows advancing its centre
// chunk to stage: the centre must be a ProtoChunk at the stage preceding it,
// and every chunk within the read radius of stage must have reached its
// dependencies. Chunks within the write radius must be present.
func (c *Cache) CheckDependencies(stage chunk.Stage) error {
	centre := c.Centre()
	if stage <= chunk.StageEmpty || stage > chunk.StageFull || stage.CacheRadius() > c.size/2 {
		return &DependencyError{Stage: stage, Pos: centre, Neighbour: centre, Have: c.stage, Need: stage}
	}
	prev := stage.Prev()
	ch, ok := c.Chunk(centre)
	if !ok {
		return &DependencyError{Stage: stage, Pos: centre, Neighbour: centre, Need: prev}
	}
	if _, proto := ch.(*chunk.ProtoChunk); !proto || ch.Stage() != prev {
		return &DependencyError{Stage: stage, Pos: centre, Neighbour: centre, Have: ch.Stage(), Need: prev}
	}

	for _, pos := range chunk.Square(centre, stage.CacheRadius()) {
		if pos == centre {
			continue
		}
		ch, ok := c.Chunk(pos)
		if !ok {
			return &DependencyError{Stage: stage, Pos: centre, Neighbour: pos, Need: c.need(stage, pos)}
		}
		if pos.Distance(centre) > stage.DirectRadius() {
			continue
		}
		for _, dep := range stage.DirectDependencies() {
			if ch.Stage() < dep {
				return &DependencyError{Stage: stage, Pos: centre, Neighbour: pos, Have: ch.Stage(), Need: dep}
			}
		}
	}
	return nil
}

// need returns the lowest stage the chunk at pos must be at for stage to be
// advanced, for use in errors about missing chunks.
func (c *Cache) need(stage chunk.Stage, pos chunk.Pos) chunk.Stage {
	if pos.Distance(c.Centre()) > stage.DirectRadius() {
		return chunk.StageEmpty
	}
	need := chunk.StageEmpty
	for _, dep := range stage.DirectDependencies() {
		need = max(need, dep)
	}
	return need
}

// Advance runs the algorithm of stage on the centre chunk of c and moves it to
// stage. Neighbouring chunks in the window are read as the dependencies of
// stage allow and written to as far as its write radius allows. Advancing to
// StageFull finalises the centre into a LevelChunk in place.
//
// Advance performs no I/O and touches no state outside c and ctx, which it
// only reads. If the window does not satisfy the dependencies of stage,
// Advance panics with a *DependencyError.
func (c *Cache) Advance(stage chunk.Stage, ctx *Context) {
	if err := c.CheckDependencies(stage); err != nil {
		panic(err)
	}
	centre, _ := c.Chunk(c.Centre())
	p := centre.(*chunk.ProtoChunk)

	switch stage {
	case chunk.StageBiomes:
		ctx.Generator.Biomes(c, p, ctx)
	case chunk.StageStructureStart:
		ctx.Generator.StructureStarts(c, p, ctx)
	case chunk.StageStructureReferences:
		c.collectReferences(p)
	case chunk.StageNoise:
		ctx.Generator.Noise(c, p, ctx)
	case chunk.StageSurface:
		ctx.Generator.Surface(c, p, ctx)
	case chunk.StageFeatures:
		ctx.Generator.Features(c, p, ctx)
	case chunk.StageLighting:
		c.lightChunk(p, ctx)
	case chunk.StageFull:
		// p is left at StageLighting with its payload if finalising panics.
		_ = c.Put(chunk.Finalise(p, ctx.Lighting, ctx.Registry))
		return
	}
	p.SetStage(stage)
}

// collectReferences records in p the positions of chunks in the window whose
// structure starts intersect p. The features stage places the parts of those
// structures that fall into p.
func (c *Cache) collectReferences(p *chunk.ProtoChunk) {
	p.References = p.References[:0]
	for _, pos := range c.Positions() {
		for _, start := range c.StructureStarts(pos) {
			if start.Intersects(p.Pos()) {
				p.References = append(p.References, pos)
				break
			}
		}
	}
}
