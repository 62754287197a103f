// Package domain holds the ordered sequence of points a Representer
// defines a model over.
package domain

// Point is a domain index, the unit a Representer maps to and from a
// sample vector's coordinate block. Richer representers (mesh/image
// adapters) are free to carry their own point type at their boundary;
// within this module Point is the representer-agnostic index into the
// domain sequence.
type Point int

// Domain is an ordered, immutable sequence of points. Index i aligns
// with the Representer's point-to-index mapping for point i.
type Domain struct {
	points []Point
}

// NewDomain builds a Domain over 0..n-1.
func NewDomain(n int) Domain {
	points := make([]Point, n)
	for i := range points {
		points[i] = Point(i)
	}
	return Domain{points: points}
}

// Len returns the number of points in the domain, in O(1).
func (d Domain) Len() int {
	return len(d.points)
}

// At returns the point at position i.
func (d Domain) At(i int) Point {
	return d.points[i]
}

// Points returns the domain's points as a slice. The returned slice is
// owned by the caller; mutating it does not affect the Domain.
func (d Domain) Points() []Point {
	out := make([]Point, len(d.points))
	copy(out, d.points)
	return out
}
