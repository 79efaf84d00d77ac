package gen

// NoiseRouter holds the seeded noise fields terrain is shaped by. A
// NoiseRouter is read-only once created and safe for concurrent use.
type NoiseRouter struct {
	// Terrain drives the 3D density of the terrain.
	Terrain *Simplex
	// Temperature and Rainfall drive biome selection.
	Temperature, Rainfall *Simplex
	// Detail adds small-scale variation to surfaces.
	Detail *Simplex
}

// NewNoiseRouter creates the noise fields for the seed passed. Each field is
// seeded differently so that they are uncorrelated.
func NewNoiseRouter(seed int64) *NoiseRouter {
	return &NoiseRouter{
		Terrain:     NewSimplex(seed),
		Temperature: NewSimplex(seed ^ 0x5DEECE66D),
		Rainfall:    NewSimplex(seed ^ 0x2545F4914F6CDD1D),
		Detail:      NewSimplex(seed + 1),
	}
}

var simplexGradients = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// Simplex produces deterministic simplex noise in [-1, 1] from a seed.
type Simplex struct {
	perm [512]uint8
}

// NewSimplex creates a Simplex with a permutation table shuffled by seed.
func NewSimplex(seed int64) *Simplex {
	var p [256]uint8
	for i := range p {
		p[i] = uint8(i)
	}
	s := uint64(seed)
	for i := 255; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407
		j := int((s >> 33) % uint64(i+1))
		p[i], p[j] = p[j], p[i]
	}
	n := &Simplex{}
	for i := range n.perm {
		n.perm[i] = p[i&255]
	}
	return n
}

// Noise2D samples 2D noise at x, y.
func (n *Simplex) Noise2D(x, y float64) float64 {
	const (
		f2 = 0.36602540378443864676
		g2 = 0.21132486540518711775
	)
	s := (x + y) * f2
	i, j := floor(x+s), floor(y+s)
	t := float64(i+j) * g2
	x0, y0 := x-(float64(i)-t), y-(float64(j)-t)

	i1, j1 := 0, 1
	if x0 > y0 {
		i1, j1 = 1, 0
	}
	x1, y1 := x0-float64(i1)+g2, y0-float64(j1)+g2
	x2, y2 := x0-1+2*g2, y0-1+2*g2

	ii, jj := i&255, j&255
	g0 := n.grad(ii + n.p(jj))
	g1 := n.grad(ii + i1 + n.p(jj+j1))
	gr2 := n.grad(ii + 1 + n.p(jj+1))

	return 70 * (corner2(g0, x0, y0) + corner2(g1, x1, y1) + corner2(gr2, x2, y2))
}

// Noise3D samples 3D noise at x, y, z.
func (n *Simplex) Noise3D(x, y, z float64) float64 {
	const (
		f3 = 1.0 / 3.0
		g3 = 1.0 / 6.0
	)
	s := (x + y + z) * f3
	i, j, k := floor(x+s), floor(y+s), floor(z+s)
	t := float64(i+j+k) * g3
	x0, y0, z0 := x-(float64(i)-t), y-(float64(j)-t), z-(float64(k)-t)

	var i1, j1, k1, i2, j2, k2 int
	switch {
	case x0 >= y0 && y0 >= z0:
		i1, i2, j2 = 1, 1, 1
	case x0 >= y0 && x0 >= z0:
		i1, i2, k2 = 1, 1, 1
	case x0 >= y0:
		k1, i2, k2 = 1, 1, 1
	case y0 < z0:
		k1, j2, k2 = 1, 1, 1
	case x0 < z0:
		j1, j2, k2 = 1, 1, 1
	default:
		j1, i2, j2 = 1, 1, 1
	}

	x1, y1, z1 := x0-float64(i1)+g3, y0-float64(j1)+g3, z0-float64(k1)+g3
	x2, y2, z2 := x0-float64(i2)+2*g3, y0-float64(j2)+2*g3, z0-float64(k2)+2*g3
	x3, y3, z3 := x0-1+3*g3, y0-1+3*g3, z0-1+3*g3

	ii, jj, kk := i&255, j&255, k&255
	g0 := n.grad(ii + n.p(jj+n.p(kk)))
	g1 := n.grad(ii + i1 + n.p(jj+j1+n.p(kk+k1)))
	gr2 := n.grad(ii + i2 + n.p(jj+j2+n.p(kk+k2)))
	g3i := n.grad(ii + 1 + n.p(jj+1+n.p(kk+1)))

	return 32 * (corner3(g0, x0, y0, z0) + corner3(g1, x1, y1, z1) + corner3(gr2, x2, y2, z2) + corner3(g3i, x3, y3, z3))
}

// Octave2D layers octaves of 2D noise, each at double the frequency and
// persistence times the amplitude of the previous one. The result is
// normalised to roughly [-1, 1].
func (n *Simplex) Octave2D(x, y float64, octaves int, persistence float64) float64 {
	var total, norm float64
	freq, amp := 1.0, 1.0
	for range octaves {
		total += n.Noise2D(x*freq, y*freq) * amp
		norm += amp
		amp *= persistence
		freq *= 2
	}
	return total / norm
}

// Octave3D is the 3D counterpart of Octave2D.
func (n *Simplex) Octave3D(x, y, z float64, octaves int, persistence float64) float64 {
	var total, norm float64
	freq, amp := 1.0, 1.0
	for range octaves {
		total += n.Noise3D(x*freq, y*freq, z*freq) * amp
		norm += amp
		amp *= persistence
		freq *= 2
	}
	return total / norm
}

func (n *Simplex) p(i int) int {
	return int(n.perm[i])
}

func (n *Simplex) grad(i int) [3]float64 {
	return simplexGradients[n.perm[i]%12]
}

func corner2(g [3]float64, x, y float64) float64 {
	t := 0.5 - x*x - y*y
	if t < 0 {
		return 0
	}
	t *= t
	return t * t * (g[0]*x + g[1]*y)
}

func corner3(g [3]float64, x, y, z float64) float64 {
	t := 0.6 - x*x - y*y - z*z
	if t < 0 {
		return 0
	}
	t *= t
	return t * t * (g[0]*x + g[1]*y + g[2]*z)
}

func floor(x float64) int {
	i := int(x)
	if x < float64(i) {
		return i - 1
	}
	return i
}
