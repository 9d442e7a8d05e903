package detector

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/imageio"
	"github.com/dudu/frvtface/internal/inference"
)

var scrfdStrides = []int{8, 16, 32}

const scrfdAnchors = 2 // anchors per position

// SCRFDInputNames and SCRFDOutputNames are the graph names of the SCRFD model
var (
	SCRFDInputNames = []string{"input.1"}
	// 3 levels × 3 outputs each: score, bbox, kps
	SCRFDOutputNames = []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}
)

// SCRFDOutputShapes returns the fixed output shapes for a square input size,
// in SCRFDOutputNames order
func SCRFDOutputShapes(inputSize int) [][]int64 {
	shapes := make([][]int64, 9)
	for i, stride := range scrfdStrides {
		fm := inputSize / stride
		numAnchors := int64(fm * fm * scrfdAnchors)
		shapes[i] = []int64{numAnchors, 1}
		shapes[i+3] = []int64{numAnchors, 4}
		shapes[i+6] = []int64{numAnchors, 10}
	}
	return shapes
}

// SCRFD implements the SCRFD face detector
type SCRFD struct {
	engine        inference.Engine
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
}

// NewSCRFD creates a new SCRFD detector on an engine built with
// SCRFDOutputNames and SCRFDOutputShapes(inputSize)
func NewSCRFD(engine inference.Engine, inputSize int, confThreshold, nmsThreshold float32) *SCRFD {
	return &SCRFD{
		engine:        engine,
		inputSize:     inputSize,
		confThreshold: confThreshold,
		nmsThreshold:  nmsThreshold,
	}
}

// Detect finds faces in an image, best score first
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	origHeight := img.Rows()
	origWidth := img.Cols()

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	input, err := inference.NewTensor(
		[]int64{1, 3, int64(s.inputSize), int64(s.inputSize)},
		imageio.Float32s(inputBlob),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputs, err := s.engine.Infer(input)
	if err != nil {
		return nil, fmt.Errorf("face detection inference failed: %w", err)
	}

	faces, err := s.postprocess(outputs, scale, origWidth, origHeight)
	if err != nil {
		return nil, err
	}

	return nms(faces, s.nmsThreshold), nil
}

// preprocess resizes and normalizes the image
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	// Calculate scale to fit input size while maintaining aspect ratio
	height := img.Rows()
	width := img.Cols()

	scale := float32(s.inputSize) / float32(max(height, width))

	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	// Letterbox into the top-left corner
	padded := gocv.Zeros(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(padded, &rgb, gocv.ColorBGRToRGB)
	padded.Close()

	// Convert to float and normalize: (x - 127.5) / 128.0
	blob := gocv.NewMat()
	rgb.ConvertTo(&blob, gocv.MatTypeCV32FC3)
	rgb.Close()
	gocv.AddWeighted(blob, 1.0/128.0, blob, 0, -127.5/128.0, &blob)

	// Convert HWC to CHW (blob format)
	blobNCHW := gocv.BlobFromImage(blob, 1.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	blob.Close()

	return blobNCHW, scale
}

// postprocess decodes model outputs to faces
func (s *SCRFD) postprocess(outputs [][]float32, scale float32, origWidth, origHeight int) ([]Face, error) {
	if len(outputs) != len(SCRFDOutputNames) {
		return nil, fmt.Errorf("expected %d detector outputs, got %d", len(SCRFDOutputNames), len(outputs))
	}

	var faces []Face

	for level, stride := range scrfdStrides {
		fm := s.inputSize / stride
		numAnchors := fm * fm * scrfdAnchors

		scoreData := outputs[level]
		bboxData := outputs[level+3]
		kpsData := outputs[level+6]
		if len(scoreData) < numAnchors || len(bboxData) < numAnchors*4 || len(kpsData) < numAnchors*10 {
			return nil, fmt.Errorf("detector outputs for stride %d are too short", stride)
		}

		anchorIdx := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < scrfdAnchors; a++ {
					score := sigmoid(scoreData[anchorIdx])

					if score > s.confThreshold {
						cx := (float32(x) + 0.5) * float32(stride)
						cy := (float32(y) + 0.5) * float32(stride)

						// Decode bbox (distance to edges)
						bboxIdx := anchorIdx * 4
						x1 := (cx - bboxData[bboxIdx]*float32(stride)) / scale
						y1 := (cy - bboxData[bboxIdx+1]*float32(stride)) / scale
						x2 := (cx + bboxData[bboxIdx+2]*float32(stride)) / scale
						y2 := (cy + bboxData[bboxIdx+3]*float32(stride)) / scale

						var kps Keypoints
						kpsIdx := anchorIdx * 10
						for k := range kps {
							kps[k] = Point{
								X: (cx + kpsData[kpsIdx+2*k]*float32(stride)) / scale,
								Y: (cy + kpsData[kpsIdx+2*k+1]*float32(stride)) / scale,
							}
						}

						faces = append(faces, Face{
							Rect: Rect{
								X1:    clamp(x1, 0, float32(origWidth)),
								Y1:    clamp(y1, 0, float32(origHeight)),
								X2:    clamp(x2, 0, float32(origWidth)),
								Y2:    clamp(y2, 0, float32(origHeight)),
								Score: score,
							},
							Keypoints: kps,
						})
					}
					anchorIdx++
				}
			}
		}
	}

	return faces, nil
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
