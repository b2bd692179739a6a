package geom

import "math"

// Dims returns the dimensionality of V.
func Dims[V Vector[V]]() int {
	var zero V
	return zero.Dims()
}

// Orthants returns the number of children of an internal spatial cell, 2^D.
func Orthants[V Vector[V]]() int {
	return 1 << Dims[V]()
}

// Dist is the Euclidean distance between a and b.
func Dist[V Vector[V]](a, b V) float64 {
	return a.Sub(b).Norm()
}

// FromCoords builds a V from its components. Missing components are zero and
// extra ones are ignored, so a 3D record can be loaded into a 2D layout.
func FromCoords[V Vector[V]](cs ...float64) V {
	var v V
	for axis := 0; axis < v.Dims() && axis < len(cs); axis++ {
		v = v.WithCoord(axis, cs[axis])
	}
	return v
}

// Coords returns the components of v, always three long; z is zero in 2D.
func Coords[V Vector[V]](v V) [3]float64 {
	var out [3]float64
	for axis := 0; axis < v.Dims(); axis++ {
		out[axis] = v.Coord(axis)
	}
	return out
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite[V Vector[V]](v V) bool {
	for axis := 0; axis < v.Dims(); axis++ {
		c := v.Coord(axis)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Direction returns a unit vector derived deterministically from seed. It is
// used to separate bodies sitting at the same point, where the line between
// them is undefined.
func Direction[V Vector[V]](seed uint64) V {
	var v V
	h := seed
	for axis := 0; axis < v.Dims(); axis++ {
		h = splitmix(h)
		// map the top 53 bits into [-1, 1)
		c := float64(h>>11)/(1<<52) - 1
		v = v.WithCoord(axis, c)
	}
	n := v.Norm()
	if n < 1e-9 {
		return v.WithCoord(0, 1)
	}
	return v.Scale(1 / n)
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
