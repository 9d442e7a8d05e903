package recognizer

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/detector"
	"github.com/dudu/frvtface/internal/imageio"
	"github.com/dudu/frvtface/internal/inference"
)

const (
	// DefaultInputSize is the side of the square gray input
	DefaultInputSize = 128
	// DefaultMarginRatio expands the landmark box on every side by this
	// fraction of its extent
	DefaultMarginRatio = 0.75
)

var (
	// ErrNoLandmarks is returned when Extract is given no landmarks
	ErrNoLandmarks = errors.New("no landmarks")
	// ErrEmptyCrop is returned when the expanded landmark box has no overlap
	// with the image
	ErrEmptyCrop = errors.New("face crop is empty")
)

// SphereFace extracts descriptors with the SphereFace recognition model
type SphereFace struct {
	engine      inference.Engine
	inputSize   int
	marginRatio float64
}

// NewSphereFace creates a descriptor extractor on top of an engine whose input
// is a [1, inputSize, inputSize, 1] gray tensor and whose first output holds
// FeatureSize values
func NewSphereFace(engine inference.Engine, inputSize int, marginRatio float64) *SphereFace {
	return &SphereFace{
		engine:      engine,
		inputSize:   inputSize,
		marginRatio: marginRatio,
	}
}

// Extract computes the descriptor for the face described by landmarks. The
// model runs twice, on the crop and on its mirror, and the two feature
// vectors are concatenated in that order.
func (s *SphereFace) Extract(img gocv.Mat, landmarks detector.Landmarks) (Descriptor, error) {
	var desc Descriptor

	if landmarks.Empty() {
		return desc, ErrNoLandmarks
	}

	region := s.CropRegion(landmarks, img.Cols(), img.Rows())
	if region.Empty() {
		return desc, ErrEmptyCrop
	}

	face := s.normalize(img, region)
	defer face.Close()

	first, err := s.infer(face)
	if err != nil {
		return desc, err
	}

	mirrored := gocv.NewMat()
	defer mirrored.Close()
	gocv.Flip(face, &mirrored, 1)

	second, err := s.infer(mirrored)
	if err != nil {
		return desc, err
	}

	copy(desc[:FeatureSize], first)
	copy(desc[FeatureSize:], second)
	return desc, nil
}

// CropRegion expands the tight landmark box by the margin ratio on each side
// and clamps it to a width x height image
func (s *SphereFace) CropRegion(landmarks detector.Landmarks, width, height int) image.Rectangle {
	b := landmarks.Bounds()
	w := b.Dx()
	h := b.Dy()
	mx := int(float64(w) * s.marginRatio)
	my := int(float64(h) * s.marginRatio)

	r := image.Rect(b.Min.X-mx, b.Min.Y-my, b.Max.X+mx, b.Max.Y+my)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// normalize crops, converts to gray, resizes and scales to [-0.5, 0.5]
func (s *SphereFace) normalize(img gocv.Mat, region image.Rectangle) gocv.Mat {
	cropped := img.Region(region)
	defer cropped.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(cropped, &gray, gocv.ColorBGRToGray)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Pt(s.inputSize, s.inputSize), 0, 0, gocv.InterpolationLinear)

	out := gocv.NewMat()
	resized.ConvertTo(&out, gocv.MatTypeCV32F)
	out.DivideFloat(255)
	out.SubtractFloat(0.5)
	return out
}

func (s *SphereFace) infer(face gocv.Mat) ([]float32, error) {
	input, err := inference.NewTensor(
		[]int64{1, int64(s.inputSize), int64(s.inputSize), 1},
		imageio.Float32s(face),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognition input: %w", err)
	}

	outputs, err := s.engine.Infer(input)
	if err != nil {
		return nil, fmt.Errorf("recognition inference failed: %w", err)
	}
	if len(outputs) == 0 || len(outputs[0]) < FeatureSize {
		return nil, fmt.Errorf("%w: model returned too few features", ErrDescriptorSize)
	}
	return outputs[0][:FeatureSize], nil
}
