package detector

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/frvtface/internal/inference"
)

// dnetOutput builds a model output where the x and y blocks hold the given
// values at the given x indices
func dnetOutput(xs, ys map[int]float32) []float32 {
	out := make([]float32, DnetOutputSize)
	for idx, v := range xs {
		out[idx] = v
	}
	for idx, v := range ys {
		out[idx+dnetPoints] = v
	}
	return out
}

func TestMapLandmarks(t *testing.T) {
	tr := CropTransform{XBegin: 10, YBegin: 20, XEnd: 138, YEnd: 148, InputSize: 64}

	output := dnetOutput(
		map[int]float32{
			26: 0.125, 27: 0.25, 29: 0.375, 30: 0.25, // left eye, mean 0.25
			20: 0.5, 21: 0.5, 23: 0.5, 24: 0.5,
			13: 0.5,
			37: 0.75,
			31: 0.625,
		},
		map[int]float32{
			26: 0.5, 27: 0.5, 29: 0.5, 30: 0.5,
			20: 0.125, 21: 0.125, 23: 0.125, 24: 0.125,
			13: 0.25,
			37: 0.5,
			31: 0.75,
		},
	)

	lm := mapLandmarks(output, tr)
	require.Len(t, lm, NumLandmarks)

	assert.Equal(t, image.Pt(42, 84), lm[LeftEye])
	assert.Equal(t, image.Pt(74, 36), lm[RightEye])
	assert.Equal(t, image.Pt(74, 52), lm[Nose])
	assert.Equal(t, image.Pt(106, 84), lm[MouthLeft])
	assert.Equal(t, image.Pt(90, 116), lm[MouthRight])
}

func TestMapLandmarksTruncates(t *testing.T) {
	tr := CropTransform{XBegin: 0, YBegin: 0, XEnd: 64, YEnd: 64, InputSize: 64}

	// 0.5 + 0.9/64 lands at 32.9 in image space
	v := float32(0.5 + 0.9/64.0)
	output := dnetOutput(map[int]float32{13: v}, map[int]float32{13: v})

	lm := mapLandmarks(output, tr)
	assert.Equal(t, image.Pt(32, 32), lm[Nose])
}

func TestDnetLandmarksLocate(t *testing.T) {
	img := whiteImage(t, 64, 64)

	var inputs []inference.Tensor
	engine := inference.EngineFunc(func(input inference.Tensor) ([][]float32, error) {
		inputs = append(inputs, input)
		out := make([]float32, DnetOutputSize)
		for i := range out {
			out[i] = 0.5
		}
		return [][]float32{out}, nil
	})

	d := NewDnetLandmarks(engine, 64)
	rect := Rect{X1: 0, Y1: 0, X2: 63, Y2: 63}

	lm, err := d.Locate(img, rect)
	require.NoError(t, err)
	require.Len(t, lm, NumLandmarks)
	for _, p := range lm {
		assert.Equal(t, image.Pt(32, 32), p)
	}

	require.Len(t, inputs, 1)
	assert.Equal(t, []int64{1, 64, 64, 1}, inputs[0].Shape)
	require.Len(t, inputs[0].Data, 64*64)
	// White pixels normalize to (255 - 127.5) / 128
	assert.InDelta(t, 0.99609375, inputs[0].Data[0], 1e-6)

	again, err := d.Locate(img, rect)
	require.NoError(t, err)
	assert.Equal(t, lm, again)
}

func TestDnetLandmarksShortOutput(t *testing.T) {
	img := whiteImage(t, 64, 64)

	engine := inference.EngineFunc(func(inference.Tensor) ([][]float32, error) {
		return [][]float32{make([]float32, DnetOutputSize-1)}, nil
	})

	_, err := NewDnetLandmarks(engine, 64).Locate(img, Rect{X2: 30, Y2: 30})
	assert.ErrorIs(t, err, ErrShortOutput)

	empty := inference.EngineFunc(func(inference.Tensor) ([][]float32, error) {
		return nil, nil
	})
	_, err = NewDnetLandmarks(empty, 64).Locate(img, Rect{X2: 30, Y2: 30})
	assert.ErrorIs(t, err, ErrShortOutput)
}

func TestDnetLandmarksEngineError(t *testing.T) {
	img := whiteImage(t, 64, 64)
	boom := errors.New("boom")

	engine := inference.EngineFunc(func(inference.Tensor) ([][]float32, error) {
		return nil, boom
	})

	_, err := NewDnetLandmarks(engine, 64).Locate(img, Rect{X2: 30, Y2: 30})
	assert.ErrorIs(t, err, boom)
}
