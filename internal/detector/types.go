package detector

import "image"

// Point represents a 2D point
type Point struct {
	X, Y float32
}

// Rect is a face box in original image coordinates with its detection score
type Rect struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
	Score  float32
}

// Width returns box width
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns box height
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Center returns box center point
func (r Rect) Center() Point {
	return Point{
		X: (r.X1 + r.X2) / 2,
		Y: (r.Y1 + r.Y2) / 2,
	}
}

// Area returns box area
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Mirror reflects the box around a vertical axis at x = width, keeping X1 <= X2
func (r Rect) Mirror(width int) Rect {
	w := float32(width)
	return Rect{X1: w - r.X2, Y1: r.Y1, X2: w - r.X1, Y2: r.Y2, Score: r.Score}
}

// Semantic order of the five landmarks
const (
	LeftEye = iota
	RightEye
	Nose
	MouthLeft
	MouthRight

	NumLandmarks
)

// Landmarks holds five points in original image coordinates, in the order
// LeftEye, RightEye, Nose, MouthLeft, MouthRight. An empty set means no
// reliable detection.
type Landmarks []image.Point

// Empty reports whether the set carries no detection
func (l Landmarks) Empty() bool {
	return len(l) == 0
}

// AsSlice returns landmarks as a flat slice [x0,y0,x1,y1,...]
func (l Landmarks) AsSlice() []float64 {
	out := make([]float64, 0, 2*len(l))
	for _, p := range l {
		out = append(out, float64(p.X), float64(p.Y))
	}
	return out
}

// Unmirror maps landmarks found on a horizontally flipped image of the given
// width back to the unflipped frame. Mirroring swaps left and right, so the
// eye and mouth pairs trade places.
func (l Landmarks) Unmirror(width int) Landmarks {
	if len(l) != NumLandmarks {
		return nil
	}
	reflect := func(p image.Point) image.Point {
		return image.Pt(width-p.X, p.Y)
	}
	return Landmarks{
		LeftEye:    reflect(l[RightEye]),
		RightEye:   reflect(l[LeftEye]),
		Nose:       reflect(l[Nose]),
		MouthLeft:  reflect(l[MouthRight]),
		MouthRight: reflect(l[MouthLeft]),
	}
}

// Bounds computes the tight box around all points. Max is inclusive of the
// extreme points, i.e. it is not an image.Rectangle half-open range.
func (l Landmarks) Bounds() image.Rectangle {
	if len(l) == 0 {
		return image.Rectangle{}
	}
	minX, minY := l[0].X, l[0].Y
	maxX, maxY := l[0].X, l[0].Y
	for _, p := range l[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rectangle{Min: image.Pt(minX, minY), Max: image.Pt(maxX, maxY)}
}

// Keypoints are the five sub-pixel points SCRFD regresses with every box
type Keypoints [NumLandmarks]Point

// Face represents a detected face
type Face struct {
	Rect      Rect
	Keypoints Keypoints
}
