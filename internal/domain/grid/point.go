package grid

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Rect is the half-open cell range [Min, Max).
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

func NewRect(width, height int) Rect {
	return Rect{Max: Point{X: width, Y: height}}
}

func (r Rect) Width() int  { return r.Max.X - r.Min.X }
func (r Rect) Height() int { return r.Max.Y - r.Min.Y }

func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Square returns the cells within Chebyshev distance radius of center,
// clipped to r.
func (r Rect) Square(center Point, radius int) Rect {
	return Rect{
		Min: Point{X: max(r.Min.X, center.X-radius), Y: max(r.Min.Y, center.Y-radius)},
		Max: Point{X: min(r.Max.X, center.X+radius+1), Y: min(r.Max.Y, center.Y+radius+1)},
	}
}

func (r Rect) Each(fn func(p Point)) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			fn(Point{X: x, Y: y})
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
