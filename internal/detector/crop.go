package detector

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// CropTransform maps coordinates of a resized square crop back to the
// original image. XBegin..XEnd and YBegin..YEnd are the un-clamped square
// bounds (end exclusive); Source is the part of the image that was actually
// copied and Dest is where it landed inside the square.
type CropTransform struct {
	XBegin, YBegin int
	XEnd, YEnd     int
	Source         image.Rectangle
	Dest           image.Rectangle
	InputSize      int
}

// Width returns the pre-resize crop width
func (t CropTransform) Width() int {
	return t.XEnd - t.XBegin
}

// Height returns the pre-resize crop height
func (t CropTransform) Height() int {
	return t.YEnd - t.YBegin
}

// ToImage maps a normalized model-space coordinate pair to original image
// pixels
func (t CropTransform) ToImage(vx, vy float32) (float32, float32) {
	size := float32(t.InputSize)
	ratioW := float32(t.Width()) / size
	ratioH := float32(t.Height()) / size
	return vx*size*ratioW + float32(t.XBegin), vy*size*ratioH + float32(t.YBegin)
}

// Crop cuts a square around rect, pads whatever falls outside the image with
// black and resizes the result to inputSize x inputSize. The caller owns the
// returned Mat.
func Crop(img gocv.Mat, rect Rect, inputSize int) (gocv.Mat, CropTransform) {
	square, transform := cropSquare(img, rect)
	defer square.Close()
	transform.InputSize = inputSize

	if square.Empty() {
		return gocv.Zeros(inputSize, inputSize, img.Type()), transform
	}
	resized := gocv.NewMat()
	gocv.Resize(square, &resized, image.Pt(inputSize, inputSize), 0, 0, gocv.InterpolationLinear)
	return resized, transform
}

// cropSquare builds the un-resized square crop
func cropSquare(img gocv.Mat, rect Rect) (gocv.Mat, CropTransform) {
	h := float64(rect.Height())
	w := float64(rect.Width())
	n := math.Max(h, w)
	cropX := float64(rect.X1) + w*0.5 - n*0.5
	cropY := float64(rect.Y1) + h*0.5 - n*0.5

	t := CropTransform{
		XBegin: int(math.Round(cropX)),
		YBegin: int(math.Round(cropY)),
		XEnd:   int(math.Round(cropX+n)) + 1,
		YEnd:   int(math.Round(cropY+n)) + 1,
	}

	faceWidth := t.Width()
	faceHeight := t.Height()
	if faceWidth < 1 || faceHeight < 1 {
		return gocv.NewMat(), t
	}

	// Source range in the image, destination range in the square
	srcX0, srcY0, srcX1, srcY1 := t.XBegin, t.YBegin, t.XEnd, t.YEnd
	dstX0, dstY0, dstX1, dstY1 := 0, 0, faceWidth, faceHeight

	imgWidth := img.Cols()
	imgHeight := img.Rows()

	if srcX1 > imgWidth {
		dstX1 = faceWidth - (srcX1 - imgWidth)
		srcX1 = imgWidth
	}
	if srcY1 > imgHeight {
		dstY1 = faceHeight - (srcY1 - imgHeight)
		srcY1 = imgHeight
	}
	if srcX0 < 0 {
		dstX0 = -srcX0
		srcX0 = 0
	}
	if srcY0 < 0 {
		dstY0 = -srcY0
		srcY0 = 0
	}

	square := gocv.Zeros(faceHeight, faceWidth, img.Type())

	// No overlap at all leaves the square black
	if srcX1 <= srcX0 || srcY1 <= srcY0 {
		return square, t
	}

	t.Source = image.Rect(srcX0, srcY0, srcX1, srcY1)
	t.Dest = image.Rect(dstX0, dstY0, dstX1, dstY1)

	src := img.Region(t.Source)
	defer src.Close()
	dst := square.Region(t.Dest)
	defer dst.Close()
	src.CopyTo(&dst)

	return square, t
}
