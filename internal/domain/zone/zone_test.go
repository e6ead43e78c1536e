package zone

import (
	"errors"
	"testing"

	"tileworld/internal/domain/grid"
)

func TestPartitionTilesMapExactlyOnce(t *testing.T) {
	cases := []struct {
		w, h, n int
	}{
		{10, 6, 2},
		{6, 10, 3},
		{50, 50, 5},
		{7, 7, 7},
		{13, 4, 4},
	}
	for _, c := range cases {
		agents := make(map[int]grid.Point, c.n)
		for i := 1; i <= c.n; i++ {
			agents[i] = grid.Point{X: (i * 3) % c.w, Y: (i * 5) % c.h}
		}
		a, err := Partition(c.w, c.h, 1, agents)
		if err != nil {
			t.Fatalf("%dx%d n=%d: %v", c.w, c.h, c.n, err)
		}
		seen := make(map[grid.Point]int)
		for _, z := range a.Zones {
			if z.Bounds.Empty() {
				t.Fatalf("%dx%d n=%d: empty zone %d", c.w, c.h, c.n, z.ID)
			}
			z.Bounds.Each(func(p grid.Point) { seen[p]++ })
		}
		grid.NewRect(c.w, c.h).Each(func(p grid.Point) {
			if seen[p] != 1 {
				t.Fatalf("%dx%d n=%d: cell %v covered %d times", c.w, c.h, c.n, p, seen[p])
			}
		})
		if len(seen) != c.w*c.h {
			t.Fatalf("%dx%d n=%d: zones leak outside the map", c.w, c.h, c.n)
		}
		used := make(map[int]bool)
		for id := range agents {
			zid, ok := a.ByAgent[id]
			if !ok {
				t.Fatalf("agent %d unassigned", id)
			}
			if used[zid] {
				t.Fatalf("zone %d assigned twice", zid)
			}
			used[zid] = true
		}
	}
}

func TestPartitionLeftRightSplit(t *testing.T) {
	a, err := Partition(10, 6, 1, map[int]grid.Point{
		1: {X: 1, Y: 3},
		2: {X: 8, Y: 3},
	})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	left, _ := a.ZoneOf(1)
	right, _ := a.ZoneOf(2)
	if left.Bounds != (grid.Rect{Min: grid.Point{}, Max: grid.Point{X: 5, Y: 6}}) {
		t.Fatalf("unexpected left zone %+v", left.Bounds)
	}
	if right.Bounds != (grid.Rect{Min: grid.Point{X: 5}, Max: grid.Point{X: 10, Y: 6}}) {
		t.Fatalf("unexpected right zone %+v", right.Bounds)
	}
}

func TestPartitionAssignsNearestFreeStrip(t *testing.T) {
	// agent 1 sits in the bottom strip, agent 2 in the top one
	a, err := Partition(4, 12, 1, map[int]grid.Point{
		1: {X: 0, Y: 10},
		2: {X: 0, Y: 1},
	})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if a.ByAgent[1] != 1 || a.ByAgent[2] != 0 {
		t.Fatalf("unexpected assignment %+v", a.ByAgent)
	}
}

func TestPartitionErrors(t *testing.T) {
	if _, err := Partition(10, 10, 1, nil); !errors.Is(err, ErrNoAgents) {
		t.Fatalf("expected ErrNoAgents, got %v", err)
	}
	agents := map[int]grid.Point{}
	for i := range 5 {
		agents[i+1] = grid.Point{}
	}
	if _, err := Partition(4, 3, 1, agents); !errors.Is(err, ErrTooManyAgents) {
		t.Fatalf("expected ErrTooManyAgents, got %v", err)
	}
}

func TestAnchorsSingleAgentNineByNine(t *testing.T) {
	a, err := Partition(9, 9, 1, map[int]grid.Point{1: {X: 4, Y: 4}})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	z, _ := a.ZoneOf(1)
	if len(z.Anchors) != 9 {
		t.Fatalf("expected 9 anchors, got %d: %v", len(z.Anchors), z.Anchors)
	}
	covered := make(map[grid.Point]bool)
	bounds := grid.NewRect(9, 9)
	for _, p := range z.Anchors {
		if !bounds.Contains(p) {
			t.Fatalf("anchor %v outside map", p)
		}
		bounds.Square(p, 1).Each(func(c grid.Point) { covered[c] = true })
	}
	if len(covered) != 81 {
		t.Fatalf("expected anchors to cover all 81 cells, got %d", len(covered))
	}
}

func TestAnchorsSnakeOrder(t *testing.T) {
	got := Anchors(grid.NewRect(9, 6), 1)
	want := []grid.Point{
		{X: 1, Y: 1}, {X: 4, Y: 1}, {X: 7, Y: 1},
		{X: 7, Y: 4}, {X: 4, Y: 4}, {X: 1, Y: 4},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d anchors, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("anchor %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestAnchorsPulledInsideNarrowZone(t *testing.T) {
	b := grid.Rect{Min: grid.Point{X: 5, Y: 0}, Max: grid.Point{X: 7, Y: 10}}
	for _, p := range Anchors(b, 2) {
		if !b.Contains(p) {
			t.Fatalf("anchor %v outside %+v", p, b)
		}
	}
}

func TestZonePolygon(t *testing.T) {
	z := Zone{Bounds: grid.Rect{Min: grid.Point{X: 2, Y: 0}, Max: grid.Point{X: 5, Y: 6}}}
	b := z.Bound()
	if b.Min[0] != 2 || b.Max[0] != 5 || b.Max[1] != 6 {
		t.Fatalf("unexpected bound %+v", b)
	}
	ring := z.Polygon()[0]
	if len(ring) != 5 || ring[0] != ring[4] {
		t.Fatalf("expected closed 5-point ring, got %v", ring)
	}
}
