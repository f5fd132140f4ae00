package coords

import (
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMultiplyOrder(t *testing.T) {
	// Scale then translate: the translation must not be scaled.
	m := Scale(2, 2).Multiply(Translate(10, 5))
	p := m.Transform(Point{X: 1, Y: 1})
	if !almost(p.X, 12) || !almost(p.Y, 7) {
		t.Fatalf("expected (12,7), got (%v,%v)", p.X, p.Y)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(3, -2).Multiply(Rotate(math.Pi / 3)).Multiply(Scale(2, 0.5))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("inverse failed: %v", err)
	}
	p := Point{X: 7, Y: -4}
	q := inv.Transform(m.Transform(p))
	if !almost(q.X, p.X) || !almost(q.Y, p.Y) {
		t.Fatalf("round trip drifted: got (%v,%v)", q.X, q.Y)
	}
}

func TestInverseSingular(t *testing.T) {
	if _, err := (Matrix{1, 2, 2, 4, 0, 0}).Inverse(); err == nil {
		t.Fatal("expected error for singular matrix")
	}
}

func TestRotationQuadrants(t *testing.T) {
	cases := []struct {
		m    Matrix
		want int
	}{
		{Identity(), 0},
		{Rotate(math.Pi / 2), 90},
		{Rotate(math.Pi), 180},
		{Rotate(-math.Pi / 2), 270},
		{Rotate(math.Pi / 2).Multiply(Scale(3, 3)), 90},
		{Translate(100, 200), 0},
	}
	for i, c := range cases {
		if got := c.m.Rotation(); got != c.want {
			t.Fatalf("case %d: expected %d, got %d", i, c.want, got)
		}
	}
}
