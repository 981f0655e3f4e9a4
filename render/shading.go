package render

import (
	"math"

	"github.com/echoflaresat/lenscam/colors"
	"github.com/echoflaresat/lenscam/earth"
	"github.com/echoflaresat/lenscam/texture"
	"github.com/echoflaresat/lenscam/vectors"
)

// Scene is everything the shader needs besides the camera.
type Scene struct {
	Day, Night texture.Texture
	Clouds     texture.Texture // zero value disables clouds
	SunDir     vectors.Vec3
	Warm       colors.Color4
	Saturation float64
}

var sunColor = colors.Color4{R: 1.0, G: 0.97, B: 0.9, A: 1.0}

// shade returns the radiance carried back along r.
func (sc *Scene) shade(r Ray) colors.Color4 {
	dir := r.Dir.Normalize()
	t := intersectSphere(r.Origin, dir, earth.Radius)
	if t <= 0 {
		return colors.Black()
	}

	hit := r.Origin.Add(dir.Scale(t))
	normal := hit.Normalize()
	// where the surface under hit was at the ray's instant
	surface := earth.Rotate(hit, r.Time)

	light := Smoothstep(-0.1, 0.1, normal.Dot(sc.SunDir))

	cDay := sc.Day.Sample(surface)
	c := BlendNightDayEnergyConserving(cDay, sc.Night.Sample(surface), light)
	if sc.Clouds.Valid() {
		c = BlendClouds(c, sc.Clouds.Sample(surface), light, 2.0)
	}
	return sc.specular(c, cDay, dir, normal)
}

// specular adds a Blinn-Phong sun glint over water.
func (sc *Scene) specular(c, cDay colors.Color4, dir, normal vectors.Vec3) colors.Color4 {
	if normal.Dot(sc.SunDir) <= 0 {
		return c
	}
	view := dir.Neg()
	half := view.Add(sc.SunDir).Normalize()

	spec := math.Pow(Clip(normal.Dot(half), 0, 1), 30)
	ocean := Clip((cDay.B-0.5*(cDay.R+cDay.G))*10.0, 0, 1)
	fresnel := math.Pow(1.0-normal.Dot(view), 2.0)

	glint := sunColor.Scale(spec * ocean * (0.2 + 0.8*fresnel)).WithAlpha(0)
	return c.Add(glint)
}

// intersectSphere returns the nearest positive t at which o + t*d meets the
// origin-centered sphere of radius r, or -1. d need not be unit length.
func intersectSphere(o, d vectors.Vec3, r float64) float64 {
	a := d.Dot(d)
	b := 2.0 * o.Dot(d)
	c := o.Dot(o) - r*r

	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return -1.0
	}
	sq := math.Sqrt(disc)
	t1 := (-b - sq) / (2 * a)
	t2 := (-b + sq) / (2 * a)
	switch {
	case t1 > 0:
		return t1
	case t2 > 0:
		return t2
	}
	return -1.0
}

// Smoothstep performs a Hermite interpolation between 0 and 1 across [edge0, edge1].
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0.0
		}
		return 1.0
	}
	t := Clip((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3.0 - 2.0*t)
}

// Clip clamps x into the inclusive range [min, max].
func Clip(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// BlendNightDayEnergyConserving blends day and night colors with a
// root-sum-square so the terminator does not dim.
func BlendNightDayEnergyConserving(day, night colors.Color4, light float64) colors.Color4 {
	mix := func(n, d float64) float64 {
		return math.Sqrt((1-light)*n*n + light*d*d)
	}
	return colors.Color4{R: mix(night.R, day.R), G: mix(night.G, day.G), B: mix(night.B, day.B), A: 1.0}
}

// BlendClouds overlays clouds with an alpha inferred from their brightness.
func BlendClouds(c, cloud colors.Color4, light, boost float64) colors.Color4 {
	alpha := (cloud.R + cloud.G + cloud.B) / 3.0 * light * boost
	return colors.Color4{
		R: c.R + (1.0-c.R)*cloud.R*alpha,
		G: c.G + (1.0-c.G)*cloud.G*alpha,
		B: c.B + (1.0-c.B)*cloud.B*alpha,
		A: c.A,
	}
}
