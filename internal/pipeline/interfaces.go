package pipeline

import (
	"gocv.io/x/gocv"

	"github.com/dudu/frvtface/internal/detector"
	"github.com/dudu/frvtface/internal/recognizer"
)

// FaceDetector finds face boxes, best first
type FaceDetector interface {
	Detect(img gocv.Mat) ([]detector.Face, error)
}

// LandmarkDetector returns validated five-point landmarks for one face box.
// An empty result with a nil error means no reliable landmarks.
type LandmarkDetector interface {
	Detect(img gocv.Mat, rect detector.Rect) (detector.Landmarks, error)
}

// FeatureExtractor computes a descriptor from an image and its landmarks
type FeatureExtractor interface {
	Extract(img gocv.Mat, landmarks detector.Landmarks) (recognizer.Descriptor, error)
}
