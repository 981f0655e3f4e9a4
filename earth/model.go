package earth

import (
	"math"
	"time"

	"github.com/echoflaresat/lenscam/vectors"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/meeus/v3/solar"
)

const Radius = 6371.0 // Earth radius in km (spherical approximation)

// RotationRate is the sidereal rotation rate in rad/s.
const RotationRate = 7.2921159e-5

func SunDirectionECEF(t time.Time) vectors.Vec3 {
	t = t.UTC()
	jd := julian.TimeToJD(t)

	// Apparent RA/Dec of the Sun
	ra, dec := solar.ApparentEquatorial(jd)

	// Unit vector in ECI
	x := dec.Cos() * ra.Cos()
	y := dec.Cos() * ra.Sin()
	z := dec.Sin()

	// ECI → ECEF using GMST
	gmst := sidereal.Apparent0UT(jd)
	cosGMST := gmst.Angle().Cos()
	sinGMST := gmst.Angle().Sin()

	return vectors.Vec3{
		X: x*cosGMST + y*sinGMST,
		Y: -x*sinGMST + y*cosGMST,
		Z: z,
	}
}

// Geodetic returns the ECEF position (km) of a point at the given latitude and
// longitude (degrees) and altitude above the sphere (km).
func Geodetic(latDeg, lonDeg, altKm float64) vectors.Vec3 {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	r := Radius + altKm
	return vectors.Vec3{
		X: r * math.Cos(lat) * math.Cos(lon),
		Y: r * math.Cos(lat) * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

// Rotate maps a point expressed in the frame frozen at shutter open to the
// Earth-fixed frame `seconds` later. The surface turns east, so frozen
// coordinates rotate west relative to it.
func Rotate(p vectors.Vec3, seconds float64) vectors.Vec3 {
	if seconds == 0 {
		return p
	}
	theta := -RotationRate * seconds
	c, s := math.Cos(theta), math.Sin(theta)
	return vectors.Vec3{
		X: p.X*c - p.Y*s,
		Y: p.X*s + p.Y*c,
		Z: p.Z,
	}
}
