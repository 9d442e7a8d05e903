// Package imageio decodes photographs into gocv matrices and moves pixel data
// between matrices and model tensors.
package imageio

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Load decodes an image file (jpeg, png, tiff, bmp) into an 8-bit BGR Mat,
// the layout gocv.IMRead produces. The caller owns the returned Mat.
func Load(path string) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("could not open or find the image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return FromImage(img)
}

// FromImage converts a decoded image to an 8-bit BGR Mat
func FromImage(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image: %w", err)
	}
	return mat, nil
}

// Float32s copies the contents of a continuous CV_32F Mat into a slice
func Float32s(m gocv.Mat) []float32 {
	return bytesToFloat32(m.ToBytes())
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
