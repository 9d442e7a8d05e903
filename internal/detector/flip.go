package detector

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

// Locator finds raw five-point landmarks for one face box
type Locator interface {
	Locate(img gocv.Mat, rect Rect) (Landmarks, error)
}

// FlipGate rejects landmarks that are not reproduced on the mirrored image.
// A located face gives the same points under mirroring; a confused model
// (extreme pose, occlusion) does not.
type FlipGate struct {
	locator   Locator
	threshold float64
	skip      bool
}

// NewFlipGate wraps locator. Landmarks whose mirrored counterpart deviates by
// more than threshold pixels (Euclidean over all ten coordinates) are
// dropped. With skip set the check and its extra inference pass never run.
func NewFlipGate(locator Locator, threshold float64, skip bool) *FlipGate {
	return &FlipGate{
		locator:   locator,
		threshold: threshold,
		skip:      skip,
	}
}

// Detect locates landmarks for rect and validates them. An empty result with
// a nil error means no reliable landmarks.
func (g *FlipGate) Detect(img gocv.Mat, rect Rect) (Landmarks, error) {
	landmarks, err := g.locator.Locate(img, rect)
	if err != nil {
		return nil, err
	}
	return g.Validate(img, rect, landmarks)
}

// Validate returns landmarks unchanged when they pass the flip check and an
// empty set when they do not
func (g *FlipGate) Validate(img gocv.Mat, rect Rect, landmarks Landmarks) (Landmarks, error) {
	if landmarks.Empty() {
		return nil, nil
	}
	if g.skip {
		return landmarks, nil
	}

	distance, err := g.Deviation(img, rect, landmarks)
	if err != nil {
		return nil, err
	}
	if !g.Passes(distance) {
		log.Debug().
			Float64("distance", distance).
			Float64("threshold", g.threshold).
			Msg("flip consistency check rejected landmarks")
		return nil, nil
	}
	return landmarks, nil
}

// Passes reports whether a deviation is acceptable. The threshold itself
// passes.
func (g *FlipGate) Passes(distance float64) bool {
	return distance <= g.threshold
}

// Deviation re-runs the locator on the mirrored image and box and returns the
// distance between landmarks and the un-mirrored second detection
func (g *FlipGate) Deviation(img gocv.Mat, rect Rect, landmarks Landmarks) (float64, error) {
	flipped := gocv.NewMat()
	defer flipped.Close()
	gocv.Flip(img, &flipped, 1)

	width := img.Cols()
	mirrored, err := g.locator.Locate(flipped, rect.Mirror(width))
	if err != nil {
		return 0, fmt.Errorf("mirrored landmark pass failed: %w", err)
	}

	return landmarkDistance(landmarks, mirrored.Unmirror(width)), nil
}

func landmarkDistance(a, b Landmarks) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	return floats.Distance(a.AsSlice(), b.AsSlice(), 2)
}
