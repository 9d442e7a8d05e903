package inference

import "fmt"

// Tensor is a dense float32 input with an explicit shape (e.g. NHWC [1, 64, 64, 1])
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor checks that data fits shape
func NewTensor(shape []int64, data []float32) (Tensor, error) {
	if n := ShapeSize(shape); n != int64(len(data)) {
		return Tensor{}, fmt.Errorf("shape %v needs %d values, got %d", shape, n, len(data))
	}
	return Tensor{Shape: shape, Data: data}, nil
}

// Engine runs a model on one input tensor and returns its outputs in model order.
// Implementations are not required to be safe for concurrent use.
type Engine interface {
	Infer(input Tensor) ([][]float32, error)
}

// EngineFunc adapts a plain function to Engine
type EngineFunc func(input Tensor) ([][]float32, error)

// Infer calls f(input)
func (f EngineFunc) Infer(input Tensor) ([][]float32, error) {
	return f(input)
}

// ShapeSize returns the number of elements described by shape
func ShapeSize(shape []int64) int64 {
	size := int64(1)
	for _, dim := range shape {
		size *= dim
	}
	return size
}
