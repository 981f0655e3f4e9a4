package render

import "github.com/echoflaresat/lenscam/vectors"

// Ray is a time-stamped ray. Dir is not guaranteed to be unit length.
type Ray struct {
	Origin vectors.Vec3
	Dir    vectors.Vec3
	Time   float64
}

// At returns the point Origin + t*Dir.
func (r Ray) At(t float64) vectors.Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}
