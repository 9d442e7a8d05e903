package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"golang.org/x/image/tiff"
)

func redDot() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 2, color.RGBA{R: 255, A: 255})
	return img
}

func TestLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, redDot()))
	require.NoError(t, f.Close())

	mat, err := Load(path)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 4, mat.Cols())
	assert.Equal(t, 3, mat.Rows())
	assert.Equal(t, gocv.MatTypeCV8UC3, mat.Type())

	// BGR: red lands in the last channel
	px := mat.GetVecbAt(2, 1)
	assert.Equal(t, uint8(0), px[0])
	assert.Equal(t, uint8(0), px[1])
	assert.Equal(t, uint8(255), px[2])
}

func TestLoadTIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.tif")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, redDot(), nil))
	require.NoError(t, f.Close())

	mat, err := Load(path)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 4, mat.Cols())
	assert.Equal(t, uint8(255), mat.GetVecbAt(2, 1)[2])
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.jpg")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0644))
	_, err = Load(garbage)
	assert.Error(t, err)
}

func TestFloat32s(t *testing.T) {
	m := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV32F)
	defer m.Close()
	m.SetFloatAt(0, 0, -0.5)
	m.SetFloatAt(0, 1, 0)
	m.SetFloatAt(0, 2, 1.25)

	assert.Equal(t, []float32{-0.5, 0, 1.25}, Float32s(m))
}
