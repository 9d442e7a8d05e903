// Package evaluation scores template pairs from a test list and reports the
// true positive rate at fixed false positive rates.
package evaluation

import (
	"errors"
	"sort"
)

var (
	ErrInvalidDivider   = errors.New("FPR divider must be at least 1")
	ErrNoImpostorScores = errors.New("no impostor scores")
	ErrNoGenuineScores  = errors.New("no genuine scores")
)

// TPRResult is the true positive rate at FPR 1:Divider
type TPRResult struct {
	Divider   int
	TPR       float64
	Threshold float64 // impostor score at Index
	Index     int     // position in the descending impostor scores
}

// CalculateTPR picks the impostor score at index len/fprDivider of the
// descending impostor scores and returns the fraction of genuine scores
// strictly above it. Neither input is modified.
func CalculateTPR(fprDivider int, impostor, genuine []float64) (TPRResult, error) {
	if fprDivider < 1 {
		return TPRResult{}, ErrInvalidDivider
	}
	if len(impostor) == 0 {
		return TPRResult{}, ErrNoImpostorScores
	}
	if len(genuine) == 0 {
		return TPRResult{}, ErrNoGenuineScores
	}

	sorted := make([]float64, len(impostor))
	copy(sorted, impostor)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	index := len(sorted) / fprDivider
	// 1:1 would point one past the end
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	threshold := sorted[index]

	accepted := 0
	for _, s := range genuine {
		if s > threshold {
			accepted++
		}
	}

	return TPRResult{
		Divider:   fprDivider,
		TPR:       float64(accepted) / float64(len(genuine)),
		Threshold: threshold,
		Index:     index,
	}, nil
}
