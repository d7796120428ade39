package geometry

import "math"

// boundaryEpsilon is the distance under which a point counts as lying on an edge.
const boundaryEpsilon = 1e-9

// PointInPolygon tests if a point is inside a polygon using ray casting.
// Points on an edge or vertex count as inside. The ring may be given open or
// closed (first == last); both produce the same result.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	for i := 0; i < n; i++ {
		if DistanceToSegment(p, polygon[i], polygon[(i+1)%n]) <= boundaryEpsilon {
			return true
		}
	}

	inside := false
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// DistanceToSegment returns the shortest distance from p to the segment a-b.
func DistanceToSegment(p, a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Distance(a)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	proj := Point2D{X: a.X + t*dx, Y: a.Y + t*dy}
	return p.Distance(proj)
}

// DistinctVertices counts vertices of a ring, ignoring consecutive duplicates
// and the closing repeat of the first vertex.
func DistinctVertices(points []Point2D) int {
	if len(points) == 0 {
		return 0
	}
	count := 1
	for i := 1; i < len(points); i++ {
		if points[i] != points[i-1] {
			count++
		}
	}
	if count > 1 && points[len(points)-1] == points[0] {
		count--
	}
	return count
}

// CloseRing returns points with the first vertex appended when the ring is
// not already closed. The input slice is not modified.
func CloseRing(points []Point2D) []Point2D {
	out := make([]Point2D, len(points), len(points)+1)
	copy(out, points)
	if len(out) > 1 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// PolygonArea returns the absolute shoelace area of a ring.
func PolygonArea(points []Point2D) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(sum) / 2
}
