package grid

// Spiral returns every offset within Chebyshev distance radius ordered ring
// by ring outward from the origin. Inside a ring the walk goes clockwise
// starting at the ring's top-left corner, so the order is deterministic.
func Spiral(radius int) []Point {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	out := make([]Point, 0, side*side)
	out = append(out, Point{})
	for r := 1; r <= radius; r++ {
		for x := -r; x < r; x++ {
			out = append(out, Point{X: x, Y: -r})
		}
		for y := -r; y < r; y++ {
			out = append(out, Point{X: r, Y: y})
		}
		for x := r; x > -r; x-- {
			out = append(out, Point{X: x, Y: r})
		}
		for y := r; y > -r; y-- {
			out = append(out, Point{X: -r, Y: y})
		}
	}
	return out
}
