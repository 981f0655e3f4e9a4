// Package sampling provides the random variates the camera draws from.
//
// There is no package-level generator. Callers hand a Source to every
// sampling call, typically one generator per worker, which keeps seeded runs
// reproducible under any scheduling.
package sampling

import (
	"math"
	"math/rand/v2"

	"github.com/echoflaresat/lenscam/vectors"
)

// Source yields uniform variates in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// New returns a PCG generator for the given seed and stream.
func New(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// Range returns a uniform variate in [lo, hi).
func Range(src Source, lo, hi float64) float64 {
	x := lo + (hi-lo)*src.Float64()
	if x >= hi {
		// rounding can land exactly on hi for u close to 1
		x = math.Nextafter(hi, lo)
	}
	return x
}

// InUnitSphere returns a uniformly distributed point with squared length < 1.
func InUnitSphere(src Source) vectors.Vec3 {
	for {
		p := vectors.Vec3{
			X: 2*src.Float64() - 1,
			Y: 2*src.Float64() - 1,
			Z: 2*src.Float64() - 1,
		}
		if p.LengthSquared() < 1 {
			return p
		}
	}
}

// InUnitDisk returns a uniformly distributed point in the z = 0 unit disk.
func InUnitDisk(src Source) vectors.Vec3 {
	for {
		p := vectors.Vec3{
			X: 2*src.Float64() - 1,
			Y: 2*src.Float64() - 1,
		}
		if p.LengthSquared() < 1 {
			return p
		}
	}
}
