// Package geom holds the small vector types shared by the layout engine.
//
// The engine is written once against the Vector constraint and instantiated
// with Vec2 for planar maps or Vec3 for spatial ones. Everything that depends
// on the dimension (orthant indexing for the spatial tree, component access)
// lives behind the constraint's methods.
package geom

import "math"

// Vector is the capability set the spatial tree, force model and integrator
// need from a point type. V is the implementing type itself.
type Vector[V any] interface {
	comparable
	Add(V) V
	Sub(V) V
	Scale(float64) V
	Dot(V) float64
	Norm() float64
	// Dims is the number of spatial axes (2 or 3).
	Dims() int
	// Coord returns the component along axis.
	Coord(axis int) float64
	// WithCoord returns a copy with the component along axis replaced.
	WithCoord(axis int, v float64) V
	// Orthant returns the index in [0, 2^Dims) of the sub-region of a cell
	// centred at center that contains the receiver. Bit k is set when the
	// receiver lies on the positive side of center along axis k.
	Orthant(center V) int
	// OrthantCenter returns the centre of child orthant o of a cell centred
	// at the receiver, where half is the child's half-size.
	OrthantCenter(o int, half float64) V
}

// Vec2 is a point or displacement in the plane.
type Vec2 struct {
	X, Y float64
}

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Scale(s float64) Vec2 { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Dot(b Vec2) float64 { return a.X*b.X + a.Y*b.Y }
func (a Vec2) Norm() float64 { return math.Hypot(a.X, a.Y) }
func (Vec2) Dims() int { return 2 }

func (a Vec2) Coord(axis int) float64 {
	if axis == 0 {
		return a.X
	}
	return a.Y
}

func (a Vec2) WithCoord(axis int, v float64) Vec2 {
	if axis == 0 {
		a.X = v
	} else {
		a.Y = v
	}
	return a
}

func (a Vec2) Orthant(c Vec2) int {
	o := 0
	if a.X >= c.X {
		o |= 1
	}
	if a.Y >= c.Y {
		o |= 2
	}
	return o
}

func (a Vec2) OrthantCenter(o int, half float64) Vec2 {
	return Vec2{a.X + signBit(o, 0)*half, a.Y + signBit(o, 1)*half}
}

// Vec3 is a point or displacement in space.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Norm() float64 { return math.Sqrt(a.Dot(a)) }
func (Vec3) Dims() int { return 3 }

func (a Vec3) Coord(axis int) float64 {
	switch axis {
	case 0:
		return a.X
	case 1:
		return a.Y
	default:
		return a.Z
	}
}

func (a Vec3) WithCoord(axis int, v float64) Vec3 {
	switch axis {
	case 0:
		a.X = v
	case 1:
		a.Y = v
	default:
		a.Z = v
	}
	return a
}

func (a Vec3) Orthant(c Vec3) int {
	o := 0
	if a.X >= c.X {
		o |= 1
	}
	if a.Y >= c.Y {
		o |= 2
	}
	if a.Z >= c.Z {
		o |= 4
	}
	return o
}

func (a Vec3) OrthantCenter(o int, half float64) Vec3 {
	return Vec3{
		a.X + signBit(o, 0)*half,
		a.Y + signBit(o, 1)*half,
		a.Z + signBit(o, 2)*half,
	}
}

func signBit(o, axis int) float64 {
	if o&(1<<axis) != 0 {
		return 1
	}
	return -1
}
