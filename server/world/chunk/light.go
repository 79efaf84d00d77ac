package chunk

// LightContainer holds the light levels of one 16x16x16 section. A container
// is either Empty, holding a single level for every voxel without allocating,
// or Full, holding an explicit level per voxel. The zero value is an Empty
// container with level 0.
type LightContainer struct {
	data  []uint8
	level uint8
}

// EmptyLight returns a uniform container holding level for every voxel.
func EmptyLight(level uint8) LightContainer {
	return LightContainer{level: min(level, MaxLight)}
}

// FullLight returns a container backed by data, which must hold exactly
// SectionVoxels levels. FullLight panics otherwise. The container takes
// ownership of data.
func FullLight(data []uint8) LightContainer {
	if len(data) != SectionVoxels {
		panic("chunk: full light container must hold one level per voxel")
	}
	return LightContainer{data: data}
}

// Full reports if the container holds an explicit level per voxel.
func (l LightContainer) Full() bool {
	return l.data != nil
}

// Level returns the uniform level of an Empty container. For Full containers
// it returns 0.
func (l LightContainer) Level() uint8 {
	return l.level
}

// Data returns the backing per-voxel array of a Full container, or nil for
// an Empty container.
func (l LightContainer) Data() []uint8 {
	return l.data
}

// Get returns the light level at the section-relative coordinates passed.
func (l LightContainer) Get(x, y, z uint8) uint8 {
	if l.data == nil {
		return l.level
	}
	return l.data[voxelIndex(x, y, z)]
}

// Set sets the light level at the section-relative coordinates passed. An
// Empty container is promoted to Full when level differs from its uniform
// level.
func (l *LightContainer) Set(x, y, z, level uint8) {
	level = min(level, MaxLight)
	if l.data == nil {
		if level == l.level {
			return
		}
		l.data = make([]uint8, SectionVoxels)
		if l.level != 0 {
			for i := range l.data {
				l.data[i] = l.level
			}
		}
		l.level = 0
	}
	l.data[voxelIndex(x, y, z)] = level
}

// Uniform reports if every voxel in the container holds the same level, and
// returns that level.
func (l LightContainer) Uniform() (uint8, bool) {
	if l.data == nil {
		return l.level, true
	}
	first := l.data[0]
	for _, v := range l.data[1:] {
		if v != first {
			return 0, false
		}
	}
	return first, true
}

// Clone returns a deep copy of the container.
func (l LightContainer) Clone() LightContainer {
	if l.data == nil {
		return l
	}
	data := make([]uint8, SectionVoxels)
	copy(data, l.data)
	return LightContainer{data: data}
}

// voxelIndex returns the index of a section-relative voxel in a flat section
// array.
func voxelIndex(x, y, z uint8) int {
	return (int(y&15)<<8 | int(z&15)<<4 | int(x&15))
}

func emptyLights(n int, level uint8) []LightContainer {
	l := make([]LightContainer, n)
	for i := range l {
		l[i] = EmptyLight(level)
	}
	return l
}
