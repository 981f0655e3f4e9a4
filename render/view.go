package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/echoflaresat/lenscam/earth"
	"github.com/echoflaresat/lenscam/vectors"
)

var ErrDegenerateView = errors.New("degenerate view")

// View is the look-from/look-at/up triple a Camera is built from.
type View struct {
	LookFrom vectors.Vec3
	LookAt   vectors.Vec3
	Up       vectors.Vec3
}

// GeodeticView places the eye at geodetic lat/lon (deg) and altitude (km),
// looking at the Earth's center, then pans by yawDeg and tilts by tiltDeg.
func GeodeticView(latDeg, lonDeg, altKm, tiltDeg, yawDeg float64) View {
	pos := earth.Geodetic(latDeg, lonDeg, altKm)

	fwd := pos.Normalize().Neg() // look toward Earth center
	globalUp := vectors.Vec3{X: 0, Y: 0, Z: 1}
	right := fwd.Cross(globalUp)
	if right.Length() < 1e-6 {
		right = fwd.Orthogonal() // near the poles
	}
	right = right.Normalize()
	up := right.Cross(fwd).Normalize()

	// Yaw is a pan about the local vertical, so swing up to the horizon first.
	fwd, right, up = tiltCamera(fwd, right, up, 90)
	if yawDeg != 0 {
		fwd, right, up = yawCamera(fwd, right, up, yawDeg)
	}
	fwd, right, up = tiltCamera(fwd, right, up, -90)

	if tiltDeg != 0 {
		fwd, _, up = tiltCamera(fwd, right, up, tiltDeg)
	}

	return View{
		LookFrom: pos,
		LookAt:   pos.Add(fwd),
		Up:       up,
	}
}

// Validate reports whether a camera built from v has a well-defined basis.
func (v View) Validate() error {
	dir := v.LookAt.Sub(v.LookFrom)
	if dir.LengthSquared() == 0 {
		return fmt.Errorf("%w: look-from equals look-at %v", ErrDegenerateView, v.LookFrom)
	}
	if v.Up.LengthSquared() == 0 {
		return fmt.Errorf("%w: zero up vector", ErrDegenerateView)
	}
	if s := v.Up.Normalize().Cross(dir.Normalize()).Length(); s < 1e-9 || math.IsNaN(s) {
		return fmt.Errorf("%w: up %v is parallel to view direction %v", ErrDegenerateView, v.Up, dir)
	}
	return nil
}

// SurfaceDistance returns the distance from LookFrom to the Earth's surface
// along the view axis, or the distance to the horizon if the axis misses.
func (v View) SurfaceDistance() float64 {
	dir := v.LookAt.Sub(v.LookFrom)
	if t := intersectSphere(v.LookFrom, dir.Normalize(), earth.Radius); t > 0 {
		return t
	}
	r := v.LookFrom.Length()
	return math.Sqrt(math.Max(r*r-earth.Radius*earth.Radius, 0))
}

// rotateVec applies Rodrigues’ rotation formula: rotate v around axis by (cosT, sinT).
func rotateVec(v, axis vectors.Vec3, cosT, sinT float64) vectors.Vec3 {
	return v.Scale(cosT).
		Add(axis.Cross(v).Scale(sinT)).
		Add(axis.Scale(axis.Dot(v) * (1.0 - cosT)))
}

// tiltCamera rotates forward/up around the Right axis by tiltDeg.
func tiltCamera(fwd, right, up vectors.Vec3, tiltDeg float64) (vectors.Vec3, vectors.Vec3, vectors.Vec3) {
	theta := tiltDeg * math.Pi / 180.0
	c, s := math.Cos(theta), math.Sin(theta)
	return rotateVec(fwd, right, c, s).Normalize(), right, rotateVec(up, right, c, s).Normalize()
}

// yawCamera rotates forward/right around the Up axis by yawDeg.
func yawCamera(fwd, right, up vectors.Vec3, yawDeg float64) (vectors.Vec3, vectors.Vec3, vectors.Vec3) {
	theta := yawDeg * math.Pi / 180.0
	c, s := math.Cos(theta), math.Sin(theta)
	return rotateVec(fwd, up, c, s).Normalize(), rotateVec(right, up, c, s).Normalize(), up
}
