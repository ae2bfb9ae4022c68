package dataset

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/FlavioCFOliveira/GoConvNet/internal/tensor"
)

// FromImage resizes img to size x size with bilinear interpolation and
// returns it as a depth x size x size tensor scaled to [0, 1]. Depth 1 takes
// the luminance of each pixel, depth 3 the RGB channels.
func FromImage(img image.Image, f Format) (*tensor.Tensor, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if f.Depth != 1 && f.Depth != 3 {
		return nil, fmt.Errorf("%w: images need depth 1 or 3, got %d", ErrFormat, f.Depth)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrFormat)
	}

	dst := image.NewRGBA(image.Rect(0, 0, f.Size, f.Size))
	if b.Dx() == f.Size && b.Dy() == f.Size {
		draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}

	t := tensor.New(f.Depth, f.Size, f.Size)
	for y := 0; y < f.Size; y++ {
		for x := 0; x < f.Size; x++ {
			c := dst.RGBAAt(x, y)
			if f.Depth == 1 {
				t.Set(float64(color.GrayModel.Convert(c).(color.Gray).Y)/255, 0, y, x)
				continue
			}
			t.Set(float64(c.R)/255, 0, y, x)
			t.Set(float64(c.G)/255, 1, y, x)
			t.Set(float64(c.B)/255, 2, y, x)
		}
	}
	return t, nil
}

// ToImage renders a D x H x W tensor with values in [0, 1]. One channel gives
// a gray image, three give RGB. Values outside the range are clamped.
func ToImage(t *tensor.Tensor) (image.Image, error) {
	if t.Rank() != 3 || (t.Dim(0) != 1 && t.Dim(0) != 3) {
		return nil, fmt.Errorf("%w: cannot render tensor of shape %s", ErrFormat, t.Shape())
	}
	h, w := t.Dim(1), t.Dim(2)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := toByte(t.At(0, y, x))
			g, b := r, r
			if t.Dim(0) == 3 {
				g, b = toByte(t.At(1, y, x)), toByte(t.At(2, y, x))
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}

func toByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
