package populate

import (
	"math"

	"github.com/dm-vev/adamant/server/block/cube"
	"github.com/dm-vev/adamant/server/world/chunk"
	"github.com/dm-vev/adamant/server/world/gen"
	"github.com/go-gl/mathgl/mgl64"
)

// Ore places clusters of ore in a chunk.
type Ore struct {
	Types []OreType
}

func (o Ore) Populate(c *gen.Cache, pos chunk.Pos, r *gen.Random) {
	for _, ore := range o.Types {
		for i := 0; i < ore.ClusterCount; i++ {
			x, z := blockRange(pos, r)
			p := cube.Pos{x, int(r.Range(int32(ore.MinHeight), int32(ore.MaxHeight))), z}
			if c.BlockState(p) == ore.Replaces {
				ore.Place(c, p, r)
			}
		}
	}
}

// OreType describes a single kind of ore cluster.
type OreType struct {
	Material, Replaces        uint32
	ClusterCount, ClusterSize int
	MinHeight, MaxHeight      int
}

// Place places a single cluster of ore around pos. The cluster follows a
// random line through pos, with a thickness that peaks in the middle.
func (o OreType) Place(c *gen.Cache, pos cube.Pos, r *gen.Random) {
	clusterSize := float64(o.ClusterSize)
	vec := pos.Vec3()
	angle := r.Float64() * math.Pi
	offset := mgl64.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(clusterSize / 8)
	from := mgl64.Vec3{vec[0] + offset[0], vec[1] + float64(r.Int32N(3)) - 1, vec[2] + offset[1]}
	to := mgl64.Vec3{vec[0] - offset[0], vec[1] + float64(r.Int32N(3)) - 1, vec[2] - offset[1]}

	for i := float64(0); i <= clusterSize; i++ {
		seed := from.Add(to.Sub(from).Mul(i / clusterSize))
		size := ((math.Sin(i*(math.Pi/clusterSize))+1)*r.Float64()*clusterSize/16 + 1) / 2

		start := cube.PosFromVec3(seed.Sub(mgl64.Vec3{size, size, size}))
		end := cube.PosFromVec3(seed.Add(mgl64.Vec3{size, size, size}))
		for x := start[0]; x <= end[0]; x++ {
			dx := (float64(x) + 0.5 - seed[0]) / size
			for y := start[1]; y <= end[1]; y++ {
				dy := (float64(y) + 0.5 - seed[1]) / size
				for z := start[2]; z <= end[2]; z++ {
					dz := (float64(z) + 0.5 - seed[2]) / size
					if dx*dx+dy*dy+dz*dz >= 1 {
						continue
					}
					target := cube.Pos{x, y, z}
					if c.BlockState(target) == o.Replaces {
						c.SetBlockState(target, o.Material)
					}
				}
			}
		}
	}
}
