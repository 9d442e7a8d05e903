package inference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeSize(t *testing.T) {
	tests := []struct {
		name  string
		shape []int64
		want  int64
	}{
		{"landmark input", []int64{1, 64, 64, 1}, 4096},
		{"recognition output", []int64{1, 512}, 512},
		{"scalar", nil, 1},
		{"zero dim", []int64{3, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShapeSize(tt.shape))
		})
	}
}

func TestNewTensor(t *testing.T) {
	tensor, err := NewTensor([]int64{1, 2, 2, 1}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 2, 1}, tensor.Shape)

	_, err = NewTensor([]int64{1, 2, 2, 1}, []float32{1, 2, 3})
	assert.Error(t, err)
}

func TestEngineFunc(t *testing.T) {
	var seen Tensor
	var e Engine = EngineFunc(func(in Tensor) ([][]float32, error) {
		seen = in
		return [][]float32{{float32(len(in.Data))}}, nil
	})

	out, err := e.Infer(Tensor{Shape: []int64{1, 3}, Data: []float32{0, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}}, out)
	assert.Equal(t, []int64{1, 3}, seen.Shape)

	boom := errors.New("boom")
	failing := EngineFunc(func(Tensor) ([][]float32, error) { return nil, boom })
	_, err = failing.Infer(Tensor{})
	assert.ErrorIs(t, err, boom)
}

func TestNewSessionRequiresInitialize(t *testing.T) {
	_, err := NewSession(SessionConfig{ModelPath: "missing.onnx"})
	assert.Error(t, err)
}

func TestShutdownWithoutInitialize(t *testing.T) {
	assert.NoError(t, Shutdown())
}
