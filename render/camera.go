package render

import (
	"math"

	"github.com/echoflaresat/lenscam/sampling"
	"github.com/echoflaresat/lenscam/vectors"
)

// shutterEpsilon is the shortest shutter interval treated as open.
const shutterEpsilon = 1e-6

// LensSampler draws a lens-plane offset; only X and Y of the result are used.
type LensSampler func(sampling.Source) vectors.Vec3

var (
	// SphereLens projects a unit-ball sample onto the lens plane. It is the
	// default and fixes the random-stream layout of seeded renders.
	SphereLens LensSampler = sampling.InUnitSphere
	// DiskLens samples the lens disk directly.
	DiskLens LensSampler = sampling.InUnitDisk
)

// Camera is a thin-lens camera with a shutter interval. It is immutable after
// construction and safe for concurrent GetRay calls.
//
// Callers must pass lookFrom != lookAt and an up vector not parallel to the
// view direction; otherwise the basis is NaN and so is every ray.
type Camera struct {
	origin          vectors.Vec3
	lowerLeftCorner vectors.Vec3
	horizontal      vectors.Vec3
	vertical        vectors.Vec3
	u, v, w         vectors.Vec3
	lensRadius      float64
	time0, time1    float64
	lens            LensSampler
}

// NewCamera builds a camera at lookFrom aimed at lookAt. vfovDeg is the
// vertical field of view, aperture the lens diameter (0 for a pinhole) and
// focusDist the distance to the plane in focus. Ray times are drawn from
// [time0, time1).
func NewCamera(lookFrom, lookAt, up vectors.Vec3, vfovDeg, aspectRatio, aperture, focusDist, time0, time1 float64) Camera {
	theta := vfovDeg * math.Pi / 180.0
	h := math.Tan(theta / 2)
	viewportHeight := 2.0 * h
	viewportWidth := aspectRatio * viewportHeight

	w := lookFrom.Sub(lookAt).Normalize()
	u := up.Cross(w).Normalize()
	v := w.Cross(u)

	horizontal := u.Scale(focusDist * viewportWidth)
	vertical := v.Scale(focusDist * viewportHeight)
	lowerLeftCorner := lookFrom.
		Sub(horizontal.Div(2)).
		Sub(vertical.Div(2)).
		Sub(w.Scale(focusDist))

	return Camera{
		origin:          lookFrom,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		u:               u,
		v:               v,
		w:               w,
		lensRadius:      aperture / 2,
		time0:           time0,
		time1:           time1,
		lens:            SphereLens,
	}
}

// NewInstantCamera is NewCamera with the shutter closed (no motion blur).
func NewInstantCamera(lookFrom, lookAt, up vectors.Vec3, vfovDeg, aspectRatio, aperture, focusDist float64) Camera {
	return NewCamera(lookFrom, lookAt, up, vfovDeg, aspectRatio, aperture, focusDist, 0, 0)
}

// WithLens returns a copy of c that draws lens offsets from l.
func (c Camera) WithLens(l LensSampler) Camera {
	c.lens = l
	return c
}

// GetRay returns the ray through normalized image coordinates (s, t), where
// (0, 0) is the lower-left corner of the viewport and (1, 1) the upper-right.
//
// A lens sample is always drawn before the time sample, even for a pinhole,
// so the variates consumed per call do not depend on the aperture.
func (c Camera) GetRay(src sampling.Source, s, t float64) Ray {
	rd := c.lens(src).Scale(c.lensRadius)
	offset := c.u.Scale(rd.X).Add(c.v.Scale(rd.Y))

	time := 0.0
	if c.time1-c.time0 > shutterEpsilon {
		time = sampling.Range(src, c.time0, c.time1)
	}

	target := c.lowerLeftCorner.
		Add(c.horizontal.Scale(s)).
		Add(c.vertical.Scale(t))

	return Ray{
		Origin: c.origin.Add(offset),
		Dir:    target.Sub(c.origin).Sub(offset),
		Time:   time,
	}
}

func (c Camera) Origin() vectors.Vec3 { return c.origin }

// Basis returns the right, up and back axes.
func (c Camera) Basis() (u, v, w vectors.Vec3) { return c.u, c.v, c.w }

func (c Camera) LowerLeftCorner() vectors.Vec3 { return c.lowerLeftCorner }
func (c Camera) Horizontal() vectors.Vec3      { return c.horizontal }
func (c Camera) Vertical() vectors.Vec3        { return c.vertical }
func (c Camera) LensRadius() float64           { return c.lensRadius }

// Shutter returns the shutter-open and shutter-close instants.
func (c Camera) Shutter() (time0, time1 float64) { return c.time0, c.time1 }
