package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/jobrunner/limes/internal/domain"
)

func pt(lat, lng float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: lat, Lng: lng}
}

func square() domain.Polygon {
	return domain.Polygon{pt(0, 0), pt(0, 10), pt(10, 10), pt(10, 0)}
}

func triangle() domain.Polygon {
	return domain.Polygon{pt(0, 0), pt(0, 10), pt(10, 5)}
}

// randomConvex returns a convex polygon with n vertices on a circle.
func randomConvex(r *rand.Rand, n int) domain.Polygon {
	center := pt(r.Float64()*60-30, r.Float64()*300-150)
	radius := 1 + r.Float64()*10
	step := 2 * math.Pi / float64(n)
	p := make(domain.Polygon, n)
	for i := range p {
		a := float64(i)*step + r.Float64()*step*0.5
		p[i] = pt(center.Lat+radius*math.Sin(a), center.Lng+radius*math.Cos(a))
	}
	return p
}

func equalPolygons(a, b domain.Polygon) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func TestAppendVertex(t *testing.T) {
	p := domain.Polygon{pt(0, 0)}

	got, err := AppendVertex(p, pt(1, 1))
	if err != nil {
		t.Fatalf("AppendVertex() error = %v", err)
	}
	if len(got) != 2 || len(p) != 1 {
		t.Errorf("AppendVertex() = %v, input now %v", got, p)
	}

	if _, err := AppendVertex(p, pt(86, 0)); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Errorf("AppendVertex(out of bounds) error = %v, want ErrOutOfBounds", err)
	}
	if _, err := AppendVertex(p, pt(0, -180.01)); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Errorf("AppendVertex(out of bounds) error = %v, want ErrOutOfBounds", err)
	}
}

func TestMoveVertex(t *testing.T) {
	p := square()

	got, err := MoveVertex(p, 2, pt(12, 12))
	if err != nil {
		t.Fatalf("MoveVertex() error = %v", err)
	}
	if !got[2].Equal(pt(12, 12)) {
		t.Errorf("MoveVertex() vertex = %v", got[2])
	}
	if !p[2].Equal(pt(10, 10)) {
		t.Error("MoveVertex() mutated its input")
	}

	if _, err := MoveVertex(p, 4, pt(1, 1)); !errors.Is(err, domain.ErrVertexIndex) {
		t.Errorf("MoveVertex(bad index) error = %v", err)
	}
	if _, err := MoveVertex(p, 0, pt(90, 1)); !errors.Is(err, domain.ErrOutOfBounds) {
		t.Errorf("MoveVertex(out of bounds) error = %v", err)
	}
}

func TestInsertMidpoint(t *testing.T) {
	tests := []struct {
		name  string
		after int
		want  domain.Polygon
	}{
		{
			name:  "first edge",
			after: 0,
			want:  domain.Polygon{pt(0, 0), pt(0, 5), pt(0, 10), pt(10, 10), pt(10, 0)},
		},
		{
			name:  "closing edge",
			after: 3,
			want:  domain.Polygon{pt(0, 0), pt(0, 10), pt(10, 10), pt(10, 0), pt(5, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := square()
			got, err := InsertMidpoint(p, tt.after)
			if err != nil {
				t.Fatalf("InsertMidpoint() error = %v", err)
			}
			if !equalPolygons(got, tt.want) {
				t.Errorf("InsertMidpoint() = %v, want %v", got, tt.want)
			}
			if !equalPolygons(p, square()) {
				t.Error("InsertMidpoint() mutated its input")
			}
		})
	}

	if _, err := InsertMidpoint(square(), -1); !errors.Is(err, domain.ErrVertexIndex) {
		t.Errorf("InsertMidpoint(-1) error = %v", err)
	}
}

func TestDeleteVertexMinimum(t *testing.T) {
	for i := 0; i < 3; i++ {
		p := triangle()
		got, err := DeleteVertex(p, i)
		if !errors.Is(err, domain.ErrMinVertices) {
			t.Errorf("DeleteVertex(triangle, %d) error = %v, want ErrMinVertices", i, err)
		}
		if got != nil {
			t.Errorf("DeleteVertex(triangle, %d) = %v, want nil", i, got)
		}
		if !equalPolygons(p, triangle()) {
			t.Errorf("DeleteVertex(triangle, %d) mutated its input", i)
		}
	}
}

func TestDeleteVertex(t *testing.T) {
	got, err := DeleteVertex(square(), 1)
	if err != nil {
		t.Fatalf("DeleteVertex() error = %v", err)
	}
	want := domain.Polygon{pt(0, 0), pt(10, 10), pt(10, 0)}
	if !equalPolygons(got, want) {
		t.Errorf("DeleteVertex() = %v, want %v", got, want)
	}

	if _, err := DeleteVertex(square(), 7); !errors.Is(err, domain.ErrVertexIndex) {
		t.Errorf("DeleteVertex(bad index) error = %v", err)
	}
}

func TestDensify(t *testing.T) {
	got := Densify(triangle())
	want := domain.Polygon{pt(0, 0), pt(0, 5), pt(0, 10), pt(5, 7.5), pt(10, 5), pt(5, 2.5)}
	if !equalPolygons(got, want) {
		t.Errorf("Densify() = %v, want %v", got, want)
	}
}

func TestAutoDensify(t *testing.T) {
	p := square()

	once, changed := AutoDensify(p)
	if !changed || len(once) != 8 {
		t.Fatalf("AutoDensify(square) = %d vertices, changed %v", len(once), changed)
	}

	twice, changed := AutoDensify(once)
	if !changed || len(twice) != 16 {
		t.Fatalf("AutoDensify(8) = %d vertices, changed %v", len(twice), changed)
	}

	thrice, changed := AutoDensify(twice)
	if changed || len(thrice) != 16 {
		t.Errorf("AutoDensify(16) = %d vertices, changed %v; want untouched", len(thrice), changed)
	}
}

func TestDecimate(t *testing.T) {
	p := domain.Polygon{pt(0, 0), pt(0, 5), pt(0, 10), pt(5, 10), pt(10, 10), pt(10, 0)}

	got, err := Decimate(p)
	if err != nil {
		t.Fatalf("Decimate() error = %v", err)
	}
	want := domain.Polygon{pt(0, 0), pt(0, 10), pt(10, 10)}
	if !equalPolygons(got, want) {
		t.Errorf("Decimate() = %v, want %v", got, want)
	}

	if _, err := Decimate(square()); !errors.Is(err, domain.ErrMinVertices) {
		t.Errorf("Decimate(square) error = %v, want ErrMinVertices", err)
	}
}

func TestDensifyDecimateRoundTripCount(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for n := 4; n <= 20; n++ {
		for trial := 0; trial < 5; trial++ {
			p := randomConvex(r, n)

			dense := Densify(p)
			if len(dense) != 2*n {
				t.Fatalf("Densify(%d) = %d vertices", n, len(dense))
			}

			back, err := Decimate(dense)
			if err != nil {
				t.Fatalf("Decimate(Densify(%d)) error = %v", n, err)
			}
			if len(back) != n {
				t.Errorf("Decimate(Densify(p)) = %d vertices, want %d", len(back), n)
			}
			if len(back) < domain.MinVertices || len(dense) < domain.MinVertices {
				t.Errorf("result below minimum vertex count")
			}
		}
	}
}

func TestTranslatePreservesShape(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		p := randomConvex(r, 4+r.Intn(10))
		dLat, dLng := r.Float64()*10-5, r.Float64()*10-5

		moved := Translate(p, dLat, dLng)
		if len(moved) != len(p) {
			t.Fatalf("Translate() changed vertex count")
		}
		for i := range p {
			j := (i + 1) % len(p)
			wantLat, wantLng := p[j].Sub(p[i])
			gotLat, gotLng := moved[j].Sub(moved[i])
			if math.Abs(gotLat-wantLat) > 1e-9 || math.Abs(gotLng-wantLng) > 1e-9 {
				t.Fatalf("edge %d changed from (%v, %v) to (%v, %v)", i, wantLat, wantLng, gotLat, gotLng)
			}
		}
	}
}

func TestCloseRing(t *testing.T) {
	closed := CloseRing(triangle())
	if len(closed) != 4 || !closed[3].Equal(closed[0]) {
		t.Errorf("CloseRing() = %v", closed)
	}

	again := CloseRing(closed)
	if len(again) != 4 {
		t.Errorf("CloseRing(closed) = %v, want unchanged", again)
	}

	if open := OpenRing(closed); !equalPolygons(open, triangle()) {
		t.Errorf("OpenRing() = %v", open)
	}
}

func TestEdgeMidpoints(t *testing.T) {
	got := EdgeMidpoints(square())
	want := []domain.GeoPoint{pt(0, 5), pt(5, 10), pt(10, 5), pt(5, 0)}
	if !equalPolygons(got, want) {
		t.Errorf("EdgeMidpoints() = %v, want %v", got, want)
	}
}
