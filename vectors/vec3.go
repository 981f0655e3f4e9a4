package vectors

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"golang.org/x/exp/constraints"
)

// Vec is a 3D vector over a floating-point precision. It stands for both
// points and directions.
type Vec[T constraints.Float] struct {
	X, Y, Z T
}

// Vec3 is the double-precision vector used by the camera and renderer.
type Vec3 = Vec[float64]

// Vec3f is the single-precision vector.
type Vec3f = Vec[float32]

func New[T constraints.Float](x, y, z T) Vec[T] {
	return Vec[T]{X: x, Y: y, Z: z}
}

func Zero[T constraints.Float]() Vec[T] {
	return Vec[T]{}
}

// Add returns v + o.
func (v Vec[T]) Add(o Vec[T]) Vec[T] {
	return Vec[T]{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec[T]) Sub(o Vec[T]) Vec[T] {
	return Vec[T]{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Neg returns -v.
func (v Vec[T]) Neg() Vec[T] {
	return Vec[T]{-v.X, -v.Y, -v.Z}
}

// Scale returns v * s.
func (v Vec[T]) Scale(s T) Vec[T] {
	return Vec[T]{v.X * s, v.Y * s, v.Z * s}
}

// Div returns v / s. A zero s yields ±Inf or NaN components.
func (v Vec[T]) Div(s T) Vec[T] {
	return Vec[T]{v.X / s, v.Y / s, v.Z / s}
}

// Dot returns the dot product v · o.
func (v Vec[T]) Dot(o Vec[T]) T {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v × o.
func (v Vec[T]) Cross(o Vec[T]) Vec[T] {
	return Vec[T]{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// LengthSquared returns v · v.
func (v Vec[T]) LengthSquared() T {
	return v.Dot(v)
}

// Length returns the Euclidean length ||v||.
func (v Vec[T]) Length() T {
	return sqrt(v.LengthSquared())
}

// Normalize returns v / ||v||.
// The zero vector has no direction; normalizing it yields NaN components.
func (v Vec[T]) Normalize() Vec[T] {
	return v.Div(v.Length())
}

// AddAssign sets v to v + o.
func (v *Vec[T]) AddAssign(o Vec[T]) {
	v.X += o.X
	v.Y += o.Y
	v.Z += o.Z
}

// SubAssign sets v to v - o.
func (v *Vec[T]) SubAssign(o Vec[T]) {
	v.X -= o.X
	v.Y -= o.Y
	v.Z -= o.Z
}

// ScaleAssign sets v to v * s.
func (v *Vec[T]) ScaleAssign(s T) {
	v.X *= s
	v.Y *= s
	v.Z *= s
}

// DivAssign sets v to v / s.
func (v *Vec[T]) DivAssign(s T) {
	v.X /= s
	v.Y /= s
	v.Z /= s
}

// Orthogonal returns a unit vector that's perpendicular to v.
func (v Vec[T]) Orthogonal() Vec[T] {
	if math.Abs(float64(v.X)) < 0.9 {
		// cross with X axis
		return v.Cross(Vec[T]{1, 0, 0}).Normalize()
	}
	// otherwise, cross with Y axis
	return v.Cross(Vec[T]{0, 1, 0}).Normalize()
}

func (v Vec[T]) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

func Dot[T constraints.Float](a, b Vec[T]) T {
	return a.Dot(b)
}

func Cross[T constraints.Float](a, b Vec[T]) Vec[T] {
	return a.Cross(b)
}

func Distance[T constraints.Float](v1, v2 Vec[T]) T {
	return v1.Sub(v2).Length()
}

func sqrt[T constraints.Float](x T) T {
	if f, ok := any(x).(float32); ok {
		return T(math32.Sqrt(f))
	}
	return T(math.Sqrt(float64(x)))
}
