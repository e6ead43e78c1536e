package zone

import (
	"errors"
	"sort"

	"github.com/paulmach/orb"

	"tileworld/internal/domain/grid"
)

var (
	ErrNoAgents      = errors.New("no agents to partition for")
	ErrTooManyAgents = errors.New("more agents than map cells along the split axis")
)

// NoZone is the zone id of an agent that has not been partitioned yet.
const NoZone = -1

type Zone struct {
	ID      int          `json:"id"`
	Bounds  grid.Rect    `json:"bounds"`
	Anchors []grid.Point `json:"anchors"`
}

// Bound returns the zone rectangle in cell coordinates.
func (z Zone) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(z.Bounds.Min.X), float64(z.Bounds.Min.Y)},
		Max: orb.Point{float64(z.Bounds.Max.X), float64(z.Bounds.Max.Y)},
	}
}

func (z Zone) Polygon() orb.Polygon {
	return z.Bound().ToPolygon()
}

type Assignment struct {
	Zones   []Zone      `json:"zones"`
	ByAgent map[int]int `json:"by_agent"`
}

func (a Assignment) ZoneOf(agentID int) (Zone, bool) {
	id, ok := a.ByAgent[agentID]
	if !ok || id < 0 || id >= len(a.Zones) {
		return Zone{}, false
	}
	return a.Zones[id], true
}

// WholeMap is the zone an agent works in before the partition exists.
func WholeMap(width, height, sensorRange int) Zone {
	b := grid.NewRect(width, height)
	return Zone{ID: NoZone, Bounds: b, Anchors: Anchors(b, sensorRange)}
}

// Partition splits the map into one strip per agent along its longer
// dimension and hands each agent, in id order, the nearest free strip.
// The last strip absorbs the division remainder.
func Partition(width, height, sensorRange int, agents map[int]grid.Point) (Assignment, error) {
	n := len(agents)
	if n == 0 {
		return Assignment{}, ErrNoAgents
	}
	alongX := width > height
	long := height
	if alongX {
		long = width
	}
	if n > long {
		return Assignment{}, ErrTooManyAgents
	}
	step := long / n

	zones := make([]Zone, n)
	for i := range n {
		lo, hi := step*i, step*(i+1)
		if i == n-1 {
			hi = long
		}
		b := grid.Rect{Min: grid.Point{X: 0, Y: lo}, Max: grid.Point{X: width, Y: hi}}
		if alongX {
			b = grid.Rect{Min: grid.Point{X: lo, Y: 0}, Max: grid.Point{X: hi, Y: height}}
		}
		zones[i] = Zone{ID: i, Bounds: b, Anchors: Anchors(b, sensorRange)}
	}

	ids := make([]int, 0, n)
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	taken := make([]bool, n)
	byAgent := make(map[int]int, n)
	for _, id := range ids {
		pos := agents[id]
		best, bestDist := -1, 0
		for i := range n {
			if taken[i] {
				continue
			}
			d := corridorDistance(pos, step*i, alongX)
			if best < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		taken[best] = true
		byAgent[id] = best
	}
	return Assignment{Zones: zones, ByAgent: byAgent}, nil
}

// corridorDistance is the distance to the strip's near edge along the short
// axis plus the lateral offset from the strip start along the long axis.
func corridorDistance(p grid.Point, start int, alongX bool) int {
	if alongX {
		return p.Y + abs(p.X-start)
	}
	return p.X + abs(p.Y-start)
}

// Anchors lays a lattice of sensor-footprint centres over b, spaced
// 2r+1 apart, with the last row and column pulled inside the bounds. The
// result is in snake order: even rows left to right, odd rows right to left.
func Anchors(b grid.Rect, sensorRange int) []grid.Point {
	if b.Empty() {
		return nil
	}
	xs := axis(b.Min.X, b.Max.X, sensorRange)
	ys := axis(b.Min.Y, b.Max.Y, sensorRange)
	out := make([]grid.Point, 0, len(xs)*len(ys))
	for row, y := range ys {
		if row%2 == 0 {
			for _, x := range xs {
				out = append(out, grid.Point{X: x, Y: y})
			}
			continue
		}
		for i := len(xs) - 1; i >= 0; i-- {
			out = append(out, grid.Point{X: xs[i], Y: y})
		}
	}
	return out
}

func axis(lo, hi, r int) []int {
	span := 2*r + 1
	n := (hi - lo + span - 1) / span
	out := make([]int, n)
	for k := range n {
		c := lo + r + span*k
		if k == n-1 {
			c = hi - 1 - r
		}
		out[k] = min(max(c, lo), hi-1)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
