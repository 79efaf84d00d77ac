package chunk

// NeedsRelight reports if the light stored in a finalised chunk looks like it
// was filled uniformly rather than computed, so that the chunk should be
// relit before it is served. That is the case only under LightingDefault, if
// the chunk is not flagged as light-populated and every light container is
// uniformly 0 or uniformly 15.
//
// Terrain that happens to be uniformly lit is flagged as well.
func NeedsRelight(l *LevelChunk, mode LightingMode) bool {
	if mode != LightingDefault || l.lightPopulated || l.status != StageFull {
		return false
	}
	return trivialLight(l.blockLight) && trivialLight(l.skyLight)
}

func trivialLight(containers []LightContainer) bool {
	for _, c := range containers {
		v, ok := c.Uniform()
		if !ok || (v != 0 && v != MaxLight) {
			return false
		}
	}
	return true
}
