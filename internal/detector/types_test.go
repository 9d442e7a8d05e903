package detector

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectMirror(t *testing.T) {
	r := Rect{X1: 10, Y1: 5, X2: 30, Y2: 25, Score: 0.9}

	m := r.Mirror(100)
	assert.Equal(t, Rect{X1: 70, Y1: 5, X2: 90, Y2: 25, Score: 0.9}, m)
	assert.LessOrEqual(t, m.X1, m.X2)
	assert.Equal(t, r.Width(), m.Width())
	assert.Equal(t, r, m.Mirror(100))
}

func TestRectGeometry(t *testing.T) {
	r := Rect{X1: 10, Y1: 20, X2: 30, Y2: 60}

	assert.Equal(t, float32(20), r.Width())
	assert.Equal(t, float32(40), r.Height())
	assert.Equal(t, float32(800), r.Area())
	assert.Equal(t, Point{X: 20, Y: 40}, r.Center())
}

func TestLandmarksUnmirror(t *testing.T) {
	lm := Landmarks{
		image.Pt(60, 40), // left eye
		image.Pt(20, 41), // right eye
		image.Pt(40, 55),
		image.Pt(58, 70),
		image.Pt(25, 71),
	}

	u := lm.Unmirror(100)
	assert.Equal(t, Landmarks{
		LeftEye:    image.Pt(80, 41),
		RightEye:   image.Pt(40, 40),
		Nose:       image.Pt(60, 55),
		MouthLeft:  image.Pt(75, 71),
		MouthRight: image.Pt(42, 70),
	}, u)

	assert.Equal(t, lm, u.Unmirror(100))
	assert.Nil(t, Landmarks{}.Unmirror(100))
}

func TestLandmarksAsSlice(t *testing.T) {
	lm := Landmarks{image.Pt(1, 2), image.Pt(3, 4)}
	assert.Equal(t, []float64{1, 2, 3, 4}, lm.AsSlice())
	assert.Empty(t, Landmarks{}.AsSlice())
}

func TestLandmarksBounds(t *testing.T) {
	assert.Equal(t, image.Rectangle{}, Landmarks{}.Bounds())

	b := symmetric.Bounds()
	assert.Equal(t, image.Pt(30, 40), b.Min)
	assert.Equal(t, image.Pt(70, 80), b.Max)
}
