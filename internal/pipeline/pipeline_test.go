package pipeline

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/config"
	"github.com/dudu/frvtface/internal/detector"
	"github.com/dudu/frvtface/internal/recognizer"
)

type detectorFunc func(img gocv.Mat) ([]detector.Face, error)

func (f detectorFunc) Detect(img gocv.Mat) ([]detector.Face, error) { return f(img) }

type landmarkFunc func(img gocv.Mat, rect detector.Rect) (detector.Landmarks, error)

func (f landmarkFunc) Detect(img gocv.Mat, rect detector.Rect) (detector.Landmarks, error) {
	return f(img, rect)
}

type extractorFunc func(img gocv.Mat, lm detector.Landmarks) (recognizer.Descriptor, error)

func (f extractorFunc) Extract(img gocv.Mat, lm detector.Landmarks) (recognizer.Descriptor, error) {
	return f(img, lm)
}

var fivePoints = detector.Landmarks{
	image.Pt(30, 40), image.Pt(70, 40), image.Pt(50, 60), image.Pt(35, 80), image.Pt(65, 80),
}

func oneFace(gocv.Mat) ([]detector.Face, error) {
	return []detector.Face{
		{Rect: detector.Rect{X1: 10, Y1: 10, X2: 90, Y2: 90, Score: 0.9}},
		{Rect: detector.Rect{X1: 0, Y1: 0, X2: 5, Y2: 5, Score: 0.6}},
	}, nil
}

func blank(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func constDescriptor(v float32) recognizer.Descriptor {
	var d recognizer.Descriptor
	for i := range d {
		d[i] = v
	}
	return d
}

func TestProcess(t *testing.T) {
	var gotRect detector.Rect
	p := NewWithComponents(
		detectorFunc(oneFace),
		landmarkFunc(func(_ gocv.Mat, rect detector.Rect) (detector.Landmarks, error) {
			gotRect = rect
			return fivePoints, nil
		}),
		extractorFunc(func(gocv.Mat, detector.Landmarks) (recognizer.Descriptor, error) {
			return constDescriptor(1), nil
		}),
	)

	result, err := p.Process(blank(t))
	require.NoError(t, err)

	assert.True(t, result.Reliable)
	assert.Equal(t, float32(0.9), gotRect.Score, "best face is used")
	assert.Equal(t, fivePoints, result.Landmarks)
	assert.Equal(t, float32(1), result.Descriptor[0])
	assert.GreaterOrEqual(t, p.LastTiming().Total, p.LastTiming().Detection)
}

func TestProcessNoFace(t *testing.T) {
	p := NewWithComponents(
		detectorFunc(func(gocv.Mat) ([]detector.Face, error) { return nil, nil }),
		nil, nil,
	)

	_, err := p.Process(blank(t))
	assert.ErrorIs(t, err, ErrNoFace)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = p.Process(empty)
	assert.Error(t, err)
}

func TestProcessUnreliable(t *testing.T) {
	extracted := false
	p := NewWithComponents(
		detectorFunc(oneFace),
		landmarkFunc(func(gocv.Mat, detector.Rect) (detector.Landmarks, error) { return nil, nil }),
		extractorFunc(func(gocv.Mat, detector.Landmarks) (recognizer.Descriptor, error) {
			extracted = true
			return recognizer.Descriptor{}, nil
		}),
	)

	result, err := p.Process(blank(t))
	require.NoError(t, err)
	assert.False(t, result.Reliable)
	assert.False(t, extracted)
}

func TestProcessErrors(t *testing.T) {
	boom := errors.New("boom")

	p := NewWithComponents(
		detectorFunc(func(gocv.Mat) ([]detector.Face, error) { return nil, boom }),
		nil, nil,
	)
	_, err := p.Process(blank(t))
	assert.ErrorIs(t, err, boom)

	p = NewWithComponents(
		detectorFunc(oneFace),
		landmarkFunc(func(gocv.Mat, detector.Rect) (detector.Landmarks, error) { return fivePoints, nil }),
		extractorFunc(func(gocv.Mat, detector.Landmarks) (recognizer.Descriptor, error) {
			return recognizer.Descriptor{}, recognizer.ErrEmptyCrop
		}),
	)
	result, err := p.Process(blank(t))
	require.NoError(t, err)
	assert.False(t, result.Reliable)
}

func TestCreateTemplate(t *testing.T) {
	calls := 0
	p := NewWithComponents(
		detectorFunc(oneFace),
		landmarkFunc(func(gocv.Mat, detector.Rect) (detector.Landmarks, error) {
			calls++
			if calls == 2 {
				return nil, nil
			}
			return fivePoints, nil
		}),
		extractorFunc(func(gocv.Mat, detector.Landmarks) (recognizer.Descriptor, error) {
			return constDescriptor(float32(calls)), nil
		}),
	)

	img := blank(t)
	tmpl, err := p.CreateTemplate([]gocv.Mat{img, img, img})
	require.NoError(t, err)

	assert.True(t, tmpl.Valid)
	require.Len(t, tmpl.EyePairs, 3)
	assert.Equal(t, EyePair{LeftAssigned: true, RightAssigned: true, LeftX: 30, LeftY: 40, RightX: 70, RightY: 40}, tmpl.EyePairs[0])
	assert.Equal(t, EyePair{}, tmpl.EyePairs[1])
	assert.True(t, tmpl.EyePairs[2].LeftAssigned)

	// mean of the first and third descriptors
	assert.Equal(t, float32(2), tmpl.Descriptor[0])
}

func TestCreateTemplateNothingReliable(t *testing.T) {
	p := NewWithComponents(
		detectorFunc(func(gocv.Mat) ([]detector.Face, error) { return nil, nil }),
		nil, nil,
	)

	tmpl, err := p.CreateTemplate([]gocv.Mat{blank(t)})
	require.NoError(t, err)
	assert.False(t, tmpl.Valid)
	assert.Equal(t, []EyePair{{}}, tmpl.EyePairs)
	assert.Zero(t, MatchTemplates(tmpl, tmpl))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 0

	_, err := New(cfg)
	assert.Error(t, err)
}
