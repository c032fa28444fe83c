package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// NormalizedBox is a center-form bounding box with every field expressed as a
// fraction of the image dimensions, in [0,1].
type NormalizedBox struct {
	XCenter float64 `json:"x_center"`
	YCenter float64 `json:"y_center"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// PixelRect is a top-left anchored rectangle in pixel units. It may extend
// past the image edges.
type PixelRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rectangle converts r to an image.Rectangle. A non-positive extent yields the
// empty rectangle.
func (r PixelRect) Rectangle() image.Rectangle {
	if r.Width <= 0 || r.Height <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Clip returns the part of r that lies inside bounds.
func (r PixelRect) Clip(bounds image.Rectangle) image.Rectangle {
	return r.Rectangle().Intersect(bounds)
}

// Denormalize converts a normalized center-form box into a pixel rectangle
// for an image of the given size.
//
// Every product is truncated to an integer before the half extent is
// subtracted, so the result is reproducible bit for bit. No bounds
// validation is done; consumers clip.
func Denormalize(box NormalizedBox, imgW, imgH int) PixelRect {
	w := int(box.Width * float64(imgW))
	h := int(box.Height * float64(imgH))
	cx := int(box.XCenter * float64(imgW))
	cy := int(box.YCenter * float64(imgH))
	return PixelRect{
		X:      cx - w/2,
		Y:      cy - h/2,
		Width:  w,
		Height: h,
	}
}

// Normalize is the inverse of Denormalize, exact up to the truncation
// Denormalize applies (less than one pixel per field).
func Normalize(r PixelRect, imgW, imgH int) NormalizedBox {
	if imgW <= 0 || imgH <= 0 {
		return NormalizedBox{}
	}
	return NormalizedBox{
		XCenter: float64(r.X+r.Width/2) / float64(imgW),
		YCenter: float64(r.Y+r.Height/2) / float64(imgH),
		Width:   float64(r.Width) / float64(imgW),
		Height:  float64(r.Height) / float64(imgH),
	}
}

// CropRegion copies the part of r that overlaps img into a new image whose
// origin is (0,0), flattened onto black so transparent pixels read as dark
// sky. The returned point is the crop's top-left corner in img coordinates.
// ok is false when r does not overlap img.
func CropRegion(img image.Image, r PixelRect) (crop *image.NRGBA, origin image.Point, ok bool) {
	clipped := r.Clip(img.Bounds())
	if clipped.Empty() {
		return nil, image.Point{}, false
	}
	region := imaging.Crop(img, clipped)
	bg := imaging.New(clipped.Dx(), clipped.Dy(), color.Black)
	return imaging.Overlay(bg, region, image.Point{}, 1.0), clipped.Min, true
}

// Grayscale converts img to luminance using ITU-R BT.601 weights.
func Grayscale(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}

// NewCanvas returns a private, drawable copy of img.
func NewCanvas(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}
