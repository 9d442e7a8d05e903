package recognizer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// FeatureSize is the length of one model output
const FeatureSize = 512

// DescriptorSize is the length of a descriptor: the features of the crop
// followed by the features of its mirror
const DescriptorSize = 2 * FeatureSize

// DescriptorBytes is the size of the binary form of a descriptor
const DescriptorBytes = 4 * DescriptorSize

// ErrDescriptorSize is returned when a model output or a binary descriptor has
// the wrong length
var ErrDescriptorSize = errors.New("descriptor has wrong size")

// Descriptor is a 1024-dimensional face descriptor
type Descriptor [DescriptorSize]float32

// MarshalBinary encodes the descriptor as little-endian float32 values
func (d Descriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DescriptorBytes)
	for i, v := range d {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes the form written by MarshalBinary
func (d *Descriptor) UnmarshalBinary(data []byte) error {
	if len(data) != DescriptorBytes {
		return fmt.Errorf("%w: %d bytes", ErrDescriptorSize, len(data))
	}
	for i := range d {
		d[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}

// Float64s returns the descriptor widened to float64
func (d *Descriptor) Float64s() []float64 {
	out := make([]float64, DescriptorSize)
	for i, v := range d {
		out[i] = float64(v)
	}
	return out
}

// CosineSimilarity computes the cosine of the angle between two descriptors.
// A zero descriptor has similarity 0 with everything.
func CosineSimilarity(a, b *Descriptor) float64 {
	x := a.Float64s()
	y := b.Float64s()

	na := floats.Norm(x, 2)
	nb := floats.Norm(y, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(x, y) / (na * nb)
}

// Mean returns the element-wise mean of descriptors. It returns a zero
// descriptor for an empty input.
func Mean(descriptors []Descriptor) Descriptor {
	var mean Descriptor
	if len(descriptors) == 0 {
		return mean
	}

	sum := make([]float64, DescriptorSize)
	for i := range descriptors {
		floats.Add(sum, descriptors[i].Float64s())
	}
	floats.Scale(1/float64(len(descriptors)), sum)

	for i, v := range sum {
		mean[i] = float32(v)
	}
	return mean
}
