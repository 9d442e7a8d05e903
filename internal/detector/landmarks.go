package detector

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/imageio"
	"github.com/dudu/frvtface/internal/inference"
)

// DnetOutputSize is the minimum length of the landmark model output:
// an x block followed by a y block of dnetPoints values each
const DnetOutputSize = 88

// dnetPoints is the offset from an x value to its matching y value
const dnetPoints = 43

// ErrShortOutput is returned when the landmark model produced fewer values
// than its output contract promises
var ErrShortOutput = errors.New("landmark output too short")

// Model output indices averaged into each semantic point
var (
	leftEyeIndices  = []int{26, 27, 29, 30}
	rightEyeIndices = []int{20, 21, 23, 24}
	noseIndices     = []int{13}
	mouthLIndices   = []int{37}
	mouthRIndices   = []int{31}
)

// DnetLandmarks locates five facial landmarks with the dnet landmark model
type DnetLandmarks struct {
	engine    inference.Engine
	inputSize int
}

// NewDnetLandmarks creates a landmark locator on top of an engine whose input
// is a [1, inputSize, inputSize, 1] gray tensor
func NewDnetLandmarks(engine inference.Engine, inputSize int) *DnetLandmarks {
	return &DnetLandmarks{
		engine:    engine,
		inputSize: inputSize,
	}
}

// Locate returns the five landmarks for the face in rect, in img coordinates
func (d *DnetLandmarks) Locate(img gocv.Mat, rect Rect) (Landmarks, error) {
	crop, transform := Crop(img, rect, d.inputSize)
	defer crop.Close()

	input, err := inference.NewTensor(
		[]int64{1, int64(d.inputSize), int64(d.inputSize), 1},
		d.normalize(crop),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create landmark input: %w", err)
	}

	outputs, err := d.engine.Infer(input)
	if err != nil {
		return nil, fmt.Errorf("landmark inference failed: %w", err)
	}
	if len(outputs) == 0 || len(outputs[0]) < DnetOutputSize {
		return nil, ErrShortOutput
	}

	return mapLandmarks(outputs[0], transform), nil
}

// normalize converts the crop to gray and scales it to roughly [-1, 1]
func (d *DnetLandmarks) normalize(crop gocv.Mat) []float32 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(crop, &gray, gocv.ColorBGRToGray)

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	gray.ConvertTo(&floatMat, gocv.MatTypeCV32F)

	// (x - 127.5) / 128
	floatMat.SubtractFloat(127.5)
	floatMat.MultiplyFloat(0.0078125)

	return imageio.Float32s(floatMat)
}

// mapLandmarks picks the semantic points out of the raw model output and
// moves them into original image space. Coordinates are truncated.
func mapLandmarks(output []float32, transform CropTransform) Landmarks {
	groups := [NumLandmarks][]int{
		LeftEye:    leftEyeIndices,
		RightEye:   rightEyeIndices,
		Nose:       noseIndices,
		MouthLeft:  mouthLIndices,
		MouthRight: mouthRIndices,
	}

	landmarks := make(Landmarks, NumLandmarks)
	for i, indices := range groups {
		var vx, vy float32
		for _, idx := range indices {
			vx += output[idx]
			vy += output[idx+dnetPoints]
		}
		vx /= float32(len(indices))
		vy /= float32(len(indices))

		x, y := transform.ToImage(vx, vy)
		landmarks[i] = image.Pt(int(x), int(y))
	}
	return landmarks
}
