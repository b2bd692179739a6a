package geom

import (
	"math"
	"testing"
)

func TestOrthantRoundTrip2D(t *testing.T) {
	center := Vec2{10, 10}
	for o := 0; o < Orthants[Vec2](); o++ {
		child := center.OrthantCenter(o, 2)
		if got := child.Orthant(center); got != o {
			t.Errorf("orthant %d: child centre %v maps back to %d", o, child, got)
		}
	}
}

func TestOrthantRoundTrip3D(t *testing.T) {
	center := Vec3{-1, 2, 5}
	if Orthants[Vec3]() != 8 {
		t.Fatalf("expected 8 octants, got %d", Orthants[Vec3]())
	}
	for o := 0; o < 8; o++ {
		child := center.OrthantCenter(o, 0.5)
		if got := child.Orthant(center); got != o {
			t.Errorf("octant %d: child centre %v maps back to %d", o, child, got)
		}
	}
}

func TestCoordsRoundTrip(t *testing.T) {
	v := FromCoords[Vec3](1, 2, 3)
	if v != (Vec3{1, 2, 3}) {
		t.Fatalf("unexpected vector %v", v)
	}
	if c := Coords(v); c != [3]float64{1, 2, 3} {
		t.Errorf("unexpected coords %v", c)
	}

	// 3D record loaded into a 2D layout drops z
	p := FromCoords[Vec2](4, 5, 6)
	if p != (Vec2{4, 5}) {
		t.Errorf("unexpected 2D vector %v", p)
	}
	if c := Coords(p); c[2] != 0 {
		t.Errorf("expected z=0 for 2D coords, got %v", c)
	}
}

func TestDirectionIsUnitAndDeterministic(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		a := Direction[Vec3](seed)
		b := Direction[Vec3](seed)
		if a != b {
			t.Fatalf("seed %d: direction not deterministic: %v vs %v", seed, a, b)
		}
		if math.Abs(a.Norm()-1) > 1e-9 {
			t.Errorf("seed %d: expected unit vector, got norm %f", seed, a.Norm())
		}
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(Vec2{1, 2}) {
		t.Error("expected finite vector")
	}
	if IsFinite(Vec2{math.NaN(), 0}) {
		t.Error("NaN component should not be finite")
	}
	if IsFinite(Vec3{0, 0, math.Inf(1)}) {
		t.Error("Inf component should not be finite")
	}
}
