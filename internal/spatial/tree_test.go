package spatial

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/onnwee/citation-map/internal/geom"
)

func randomBodies2D(n int, seed int64) []Body[geom.Vec2] {
	rng := rand.New(rand.NewSource(seed))
	bodies := make([]Body[geom.Vec2], n)
	for i := range bodies {
		bodies[i] = Body[geom.Vec2]{
			Pos:  geom.Vec2{X: rng.Float64() * 100, Y: rng.Float64() * 100},
			Mass: 0.5 + rng.Float64()*2,
		}
	}
	return bodies
}

func randomBodies3D(n int, seed int64) []Body[geom.Vec3] {
	rng := rand.New(rand.NewSource(seed))
	bodies := make([]Body[geom.Vec3], n)
	for i := range bodies {
		bodies[i] = Body[geom.Vec3]{
			Pos:  geom.Vec3{X: rng.Float64() * 100, Y: rng.Float64() * 100, Z: rng.Float64() * 100},
			Mass: 0.5 + rng.Float64()*2,
		}
	}
	return bodies
}

func TestBuildEmpty(t *testing.T) {
	tree := Build[geom.Vec2](nil)
	if tree.Len() != 0 || tree.Cells() != 0 {
		t.Fatalf("expected empty tree, got %d bodies %d cells", tree.Len(), tree.Cells())
	}
	if tree.Mass() != 0 {
		t.Errorf("expected zero mass, got %f", tree.Mass())
	}
	if f := tree.ForceAt(Body[geom.Vec2]{Mass: 1}, 0.5, Law{Strength: 1}); f != (geom.Vec2{}) {
		t.Errorf("expected zero force from empty tree, got %v", f)
	}
}

func TestBuildSingle(t *testing.T) {
	tree := Build([]Body[geom.Vec2]{{Pos: geom.Vec2{X: 50, Y: 50}, Mass: 1}})
	if tree.Cells() != 1 {
		t.Fatalf("expected a single leaf, got %d cells", tree.Cells())
	}
	root := tree.cells[0]
	if !root.leaf || root.count != 1 {
		t.Errorf("root should be a leaf holding one body, got leaf=%v count=%d", root.leaf, root.count)
	}
	if tree.Centroid() != (geom.Vec2{X: 50, Y: 50}) {
		t.Errorf("expected centroid at (50,50), got %v", tree.Centroid())
	}
	if f := tree.Force(0, 0.8, Law{Strength: 1}); f != (geom.Vec2{}) {
		t.Errorf("force on self should be zero, got %v", f)
	}
}

func TestBuildQuadrants(t *testing.T) {
	bodies := []Body[geom.Vec2]{
		{Pos: geom.Vec2{X: 10, Y: 10}, Mass: 1},
		{Pos: geom.Vec2{X: 90, Y: 10}, Mass: 1},
		{Pos: geom.Vec2{X: 10, Y: 90}, Mass: 1},
		{Pos: geom.Vec2{X: 90, Y: 90}, Mass: 1},
	}
	tree := Build(bodies)

	root := tree.cells[0]
	if root.leaf {
		t.Fatal("root with four bodies should be internal")
	}
	for o := 0; o < 4; o++ {
		child := root.children[o]
		if child == empty {
			t.Fatalf("quadrant %d should hold a body", o)
		}
		if c := tree.cells[child]; !c.leaf || c.count != 1 {
			t.Errorf("quadrant %d should be a single-body leaf, got leaf=%v count=%d", o, c.leaf, c.count)
		}
	}
	for o := 4; o < 8; o++ {
		if root.children[o] != empty {
			t.Errorf("2D tree should not use child slot %d", o)
		}
	}

	if tree.Mass() != 4 {
		t.Errorf("expected total mass=4, got %f", tree.Mass())
	}
	c := tree.Centroid()
	if math.Abs(c.X-50) > 1e-9 || math.Abs(c.Y-50) > 1e-9 {
		t.Errorf("expected centroid (50,50), got %v", c)
	}
	_, half := tree.Bounds()
	if half <= 40 {
		t.Errorf("root region should cover all bodies with padding, half=%f", half)
	}
}

func TestMassConservation(t *testing.T) {
	for _, n := range []int{1, 2, 7, 100, 1000} {
		t.Run(fmt.Sprintf("2d_%d", n), func(t *testing.T) {
			bodies := randomBodies2D(n, int64(n))
			want := 0.0
			for _, b := range bodies {
				want += b.Mass
			}
			tree := Build(bodies)
			if math.Abs(tree.Mass()-want) > 1e-9*want {
				t.Errorf("root mass %f != body mass sum %f", tree.Mass(), want)
			}
			checkCellMasses(t, tree)
		})
		t.Run(fmt.Sprintf("3d_%d", n), func(t *testing.T) {
			bodies := randomBodies3D(n, int64(n))
			want := 0.0
			for _, b := range bodies {
				want += b.Mass
			}
			tree := Build(bodies)
			if math.Abs(tree.Mass()-want) > 1e-9*want {
				t.Errorf("root mass %f != body mass sum %f", tree.Mass(), want)
			}
			checkCellMasses(t, tree)
		})
	}
}

// checkCellMasses verifies every internal cell aggregates its children and
// every leaf holds at most one body unless it sits at the depth cutoff.
func checkCellMasses[V geom.Vector[V]](t *testing.T, tree *Tree[V]) {
	t.Helper()
	for i, c := range tree.cells {
		if c.leaf {
			if c.count > 1 && tree.Depth() < maxDepth {
				t.Errorf("cell %d: leaf with %d bodies above the depth cutoff", i, c.count)
			}
			continue
		}
		sum := 0.0
		for _, child := range c.children {
			if child != empty {
				sum += tree.cells[child].mass
			}
		}
		if math.Abs(sum-c.mass) > 1e-9*math.Max(1, c.mass) {
			t.Errorf("cell %d: mass %f != children sum %f", i, c.mass, sum)
		}
	}
}

func TestBuildCoincidentBodies(t *testing.T) {
	bodies := make([]Body[geom.Vec2], 10)
	for i := range bodies {
		bodies[i] = Body[geom.Vec2]{Pos: geom.Vec2{X: 3, Y: 3}, Mass: 1}
	}
	bodies = append(bodies, Body[geom.Vec2]{Pos: geom.Vec2{X: 40, Y: 7}, Mass: 1})

	tree := Build(bodies)
	if tree.Depth() > maxDepth {
		t.Fatalf("depth %d exceeded cutoff %d", tree.Depth(), maxDepth)
	}
	if tree.Mass() != 11 {
		t.Errorf("expected mass 11, got %f", tree.Mass())
	}

	law := Law{Strength: 1}
	for i := range bodies {
		f := tree.Force(i, 0.5, law)
		if !geom.IsFinite(f) {
			t.Fatalf("body %d: non-finite force %v", i, f)
		}
	}
}

func TestCoincidentPairIsPushedApart(t *testing.T) {
	bodies := []Body[geom.Vec3]{
		{Pos: geom.Vec3{X: 1, Y: 1, Z: 1}, Mass: 1},
		{Pos: geom.Vec3{X: 1, Y: 1, Z: 1}, Mass: 1},
	}
	tree := Build(bodies)
	law := Law{Strength: 1}
	f0 := tree.Force(0, 0, law)
	f1 := tree.Force(1, 0, law)

	if f0.Norm() == 0 {
		t.Fatal("coincident bodies should repel")
	}
	if sum := f0.Add(f1); sum.Norm() > 1e-9 {
		t.Errorf("forces should be equal and opposite, got %v and %v", f0, f1)
	}
	want := law.Strength / (DefaultMinDistance * DefaultMinDistance)
	if math.Abs(f0.Norm()-want) > 1e-6*want {
		t.Errorf("expected force capped at %g, got %g", want, f0.Norm())
	}
}

func TestForceTwoBodies(t *testing.T) {
	tree := Build([]Body[geom.Vec2]{
		{Pos: geom.Vec2{X: 40, Y: 50}, Mass: 1},
		{Pos: geom.Vec2{X: 60, Y: 50}, Mass: 2},
	})
	law := Law{Strength: 100}

	f0 := tree.Force(0, 0.8, law)
	if f0.X >= 0 {
		t.Errorf("expected body 0 pushed left, got fx=%f", f0.X)
	}
	if math.Abs(f0.Y) > 1e-9 {
		t.Errorf("expected no vertical force, got fy=%f", f0.Y)
	}
	// 100 * 1 * 2 / 20²
	if math.Abs(f0.X+0.5) > 1e-9 {
		t.Errorf("expected fx=-0.5, got %f", f0.X)
	}

	f1 := tree.Force(1, 0.8, law)
	if math.Abs(f0.X+f1.X) > 1e-9 {
		t.Errorf("forces should be equal and opposite, got %f and %f", f0.X, f1.X)
	}
}

func TestCloseRepulsionSaturates(t *testing.T) {
	bodies := []Body[geom.Vec2]{
		{Pos: geom.Vec2{X: 0, Y: 0}, Mass: 1, Radius: 1},
		{Pos: geom.Vec2{X: 0.1, Y: 0}, Mass: 1, Radius: 1},
	}
	open := Brute(bodies, 0, Law{Strength: 1})
	closed := Brute(bodies, 0, Law{Strength: 1, CloseRepulsion: true})

	// without the floor: 1/0.01; with it: 1/(1+1)²
	if math.Abs(open.Norm()-100) > 1e-6 {
		t.Errorf("expected unfloored force 100, got %f", open.Norm())
	}
	if math.Abs(closed.Norm()-0.25) > 1e-9 {
		t.Errorf("expected saturated force 0.25, got %f", closed.Norm())
	}
	if closed.X >= 0 {
		t.Errorf("saturated force should still push body 0 away, got %v", closed)
	}
}

func TestThetaZeroMatchesBruteForce(t *testing.T) {
	law := Law{Strength: 50}

	bodies2 := randomBodies2D(300, 42)
	tree2 := Build(bodies2)
	for i := range bodies2 {
		got := tree2.Force(i, 0, law)
		want := Brute(bodies2, i, law)
		if got.Sub(want).Norm() > 1e-9*math.Max(1, want.Norm()) {
			t.Fatalf("2D body %d: tree %v != brute %v", i, got, want)
		}
	}

	bodies3 := randomBodies3D(300, 43)
	tree3 := Build(bodies3)
	for i := range bodies3 {
		got := tree3.Force(i, 0, law)
		want := Brute(bodies3, i, law)
		if got.Sub(want).Norm() > 1e-9*math.Max(1, want.Norm()) {
			t.Fatalf("3D body %d: tree %v != brute %v", i, got, want)
		}
	}
}

func TestThetaErrorShrinks(t *testing.T) {
	bodies := randomBodies2D(500, 7)
	tree := Build(bodies)
	law := Law{Strength: 10}

	exact := make([]geom.Vec2, len(bodies))
	scale := 0.0
	for i := range bodies {
		exact[i] = Brute(bodies, i, law)
		scale = math.Max(scale, exact[i].Norm())
	}

	relErr := func(theta float64) float64 {
		total := 0.0
		for i := range bodies {
			total += tree.Force(i, theta, law).Sub(exact[i]).Norm()
		}
		return total / float64(len(bodies)) / scale
	}

	e12 := relErr(1.2)
	e05 := relErr(0.5)
	e01 := relErr(0.1)
	if !(e01 <= e05 && e05 <= e12) {
		t.Errorf("error should shrink with theta: 1.2=%g 0.5=%g 0.1=%g", e12, e05, e01)
	}
	if e05 > 0.05 {
		t.Errorf("theta=0.5 relative error too high: %g", e05)
	}
}

func TestForceIdempotent(t *testing.T) {
	bodies := randomBodies3D(200, 99)
	tree := Build(bodies)
	law := Law{Strength: 3, CloseRepulsion: true}
	for i := range bodies {
		a := tree.Force(i, 0.7, law)
		b := tree.Force(i, 0.7, law)
		if a != b {
			t.Fatalf("body %d: repeated queries differ: %v vs %v", i, a, b)
		}
	}
}

func TestBuildCopiesBodies(t *testing.T) {
	bodies := randomBodies2D(20, 5)
	tree := Build(bodies)
	before := tree.Force(3, 0.5, Law{Strength: 1})
	for i := range bodies {
		bodies[i].Pos = geom.Vec2{}
	}
	after := tree.Force(3, 0.5, Law{Strength: 1})
	if before != after {
		t.Errorf("tree should be isolated from caller mutation: %v vs %v", before, after)
	}
}

func BenchmarkTreeForces(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		bodies := randomBodies2D(n, 1)
		b.Run(fmt.Sprintf("BarnesHut_%d", n), func(b *testing.B) {
			law := Law{Strength: 1}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				tree := Build(bodies)
				for j := range bodies {
					tree.Force(j, 0.8, law)
				}
			}
		})
	}
}
