package design

import "math"

// Rect is an axis-aligned rectangle in document pixels (or canvas fractions
// when used as normalized bounds).
type Rect struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
	W float64 `json:"w" bson:"w"`
	H float64 `json:"h" bson:"h"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// CenterX returns the horizontal center point.
func (r Rect) CenterX() float64 { return r.X + r.W/2 }

// CenterY returns the vertical center point.
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether o lies inside r, allowing tol pixels of slack on
// every edge.
func (r Rect) Contains(o Rect, tol float64) bool {
	return o.X >= r.X-tol &&
		o.Y >= r.Y-tol &&
		o.Right() <= r.Right()+tol &&
		o.Bottom() <= r.Bottom()+tol
}

// ApproxEqual reports whether every component of r and o differs by less
// than eps.
func (r Rect) ApproxEqual(o Rect, eps float64) bool {
	return math.Abs(r.X-o.X) < eps &&
		math.Abs(r.Y-o.Y) < eps &&
		math.Abs(r.W-o.W) < eps &&
		math.Abs(r.H-o.H) < eps
}

// Size is a width/height pair.
type Size struct {
	W float64 `json:"w" bson:"w"`
	H float64 `json:"h" bson:"h"`
}

// Container is a named rectangular slot extracted from a template group.
// Containers are derived once per document parse and never modified.
type Container struct {
	ID           string `json:"id" bson:"id"`
	Name         string `json:"name" bson:"name"`                  // marker prefix stripped
	OriginalName string `json:"originalName" bson:"original_name"` // as found in the document
	Bounds       Rect   `json:"bounds" bson:"bounds"`
	Normalized   Rect   `json:"normalized" bson:"normalized"`
}
