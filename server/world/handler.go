package world

import (
	"github.com/dm-vev/adamant/server/world/chunk"
)

// Handler handles events that are called by a World. Implementations of
// Handler may be used to listen to specific events such as the completion of
// a generation stage. Handler methods are called from the goroutine that
// schedules generation, before requests waiting on the chunk are answered, and
// must not block.
type Handler interface {
	// HandleChunkGenerated handles the chunk at pos being advanced to stage.
	HandleChunkGenerated(pos chunk.Pos, stage chunk.Stage)
	// HandleGenerationFailure handles a generation job that failed. The
	// chunk at f.Pos stays at the stage it had until it is requested again.
	HandleGenerationFailure(f GenerationFailure)
}

// Compile time check to make sure NopHandler implements Handler.
var _ Handler = NopHandler{}

// NopHandler implements the Handler interface but does not execute any code
// when an event is called. The default handler of worlds is set to
// NopHandler. Users may embed NopHandler to avoid having to implement each
// method.
type NopHandler struct{}

func (NopHandler) HandleChunkGenerated(chunk.Pos, chunk.Stage) {}
func (NopHandler) HandleGenerationFailure(GenerationFailure)   {}
