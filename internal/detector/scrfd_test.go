package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scrfdOutputs builds zeroed outputs for a square input with every score
// strongly negative
func scrfdOutputs(inputSize int) [][]float32 {
	shapes := SCRFDOutputShapes(inputSize)
	outputs := make([][]float32, len(shapes))
	for i, shape := range shapes {
		n := 1
		for _, d := range shape {
			n *= int(d)
		}
		outputs[i] = make([]float32, n)
		if i < 3 {
			for j := range outputs[i] {
				outputs[i][j] = -10
			}
		}
	}
	return outputs
}

func TestSCRFDOutputShapes(t *testing.T) {
	shapes := SCRFDOutputShapes(640)
	require.Len(t, shapes, len(SCRFDOutputNames))

	assert.Equal(t, []int64{12800, 1}, shapes[0])
	assert.Equal(t, []int64{3200, 4}, shapes[4])
	assert.Equal(t, []int64{800, 10}, shapes[8])
}

func TestSCRFDPostprocess(t *testing.T) {
	s := NewSCRFD(nil, 32, 0.5, 0.4)
	outputs := scrfdOutputs(32)

	// First anchor of stride 8 sits at (4, 4)
	outputs[0][0] = 10
	copy(outputs[3][0:4], []float32{0.25, 0.25, 1, 2})
	outputs[6][0] = 1 // left eye x offset
	outputs[6][1] = -0.25

	faces, err := s.postprocess(outputs, 1, 32, 32)
	require.NoError(t, err)
	require.Len(t, faces, 1)

	f := faces[0]
	assert.InDelta(t, 2, f.Rect.X1, 1e-5)
	assert.InDelta(t, 2, f.Rect.Y1, 1e-5)
	assert.InDelta(t, 12, f.Rect.X2, 1e-5)
	assert.InDelta(t, 20, f.Rect.Y2, 1e-5)
	assert.Greater(t, f.Rect.Score, float32(0.99))
	assert.InDelta(t, 12, f.Keypoints[LeftEye].X, 1e-5)
	assert.InDelta(t, 2, f.Keypoints[LeftEye].Y, 1e-5)
}

func TestSCRFDPostprocessClampsAndScales(t *testing.T) {
	s := NewSCRFD(nil, 32, 0.5, 0.4)
	outputs := scrfdOutputs(32)

	outputs[0][0] = 10
	copy(outputs[3][0:4], []float32{1, 1, 10, 10})

	// Input was downscaled by half
	faces, err := s.postprocess(outputs, 0.5, 50, 50)
	require.NoError(t, err)
	require.Len(t, faces, 1)

	assert.Equal(t, float32(0), faces[0].Rect.X1)
	assert.Equal(t, float32(0), faces[0].Rect.Y1)
	assert.Equal(t, float32(50), faces[0].Rect.X2)
	assert.Equal(t, float32(50), faces[0].Rect.Y2)
}

func TestSCRFDPostprocessBadOutputs(t *testing.T) {
	s := NewSCRFD(nil, 32, 0.5, 0.4)

	_, err := s.postprocess(make([][]float32, 3), 1, 32, 32)
	assert.Error(t, err)

	outputs := scrfdOutputs(32)
	outputs[4] = outputs[4][:3]
	_, err = s.postprocess(outputs, 1, 32, 32)
	assert.Error(t, err)
}

func TestNMS(t *testing.T) {
	faces := []Face{
		{Rect: Rect{X1: 0, Y1: 0, X2: 10, Y2: 10, Score: 0.6}},
		{Rect: Rect{X1: 1, Y1: 1, X2: 11, Y2: 11, Score: 0.9}},
		{Rect: Rect{X1: 50, Y1: 50, X2: 60, Y2: 60, Score: 0.7}},
	}

	kept := nms(faces, 0.4)
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Rect.Score)
	assert.Equal(t, float32(0.7), kept[1].Rect.Score)

	assert.Empty(t, nms(nil, 0.4))
}

func TestIoU(t *testing.T) {
	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
	assert.InDelta(t, 1, iou(a, a), 1e-6)
	assert.Equal(t, float32(0), iou(a, Rect{X1: 20, Y1: 20, X2: 30, Y2: 30}))
	assert.InDelta(t, 25.0/175.0, iou(a, Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}), 1e-6)
}
