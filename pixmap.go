package tilemap

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Pixmap is a rectangular RGBA pixel buffer, 4 bytes per pixel.
// It is the raw image type carried by tile updates and the CPU cache tier.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a zeroed pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// wrapPixmap adopts an existing RGBA buffer without copying.
// len(data) must be width*height*4.
func wrapPixmap(width, height int, data []uint8) *Pixmap {
	return &Pixmap{width: width, height: height, data: data}
}

// PixmapFromImage copies an image into a new pixmap.
func PixmapFromImage(img image.Image) *Pixmap {
	bounds := img.Bounds()
	pm := NewPixmap(bounds.Dx(), bounds.Dy())
	xdraw.Draw(pm.rgba(), pm.rgba().Bounds(), img, bounds.Min, xdraw.Src)
	return pm
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data in RGBA order.
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// SetRGBA sets a single pixel. Out-of-bounds coordinates are ignored.
func (p *Pixmap) SetRGBA(x, y int, r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = r
	p.data[i+1] = g
	p.data[i+2] = b
	p.data[i+3] = a
}

// RGBAAt returns a single pixel. Out-of-bounds coordinates read as
// transparent black.
func (p *Pixmap) RGBAAt(x, y int) (r, g, b, a uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return 0, 0, 0, 0
	}
	i := (y*p.width + x) * 4
	return p.data[i+0], p.data[i+1], p.data[i+2], p.data[i+3]
}

// ToImage copies the pixmap into a new image.RGBA.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// rgba wraps the pixmap data as an image.RGBA without copying.
func (p *Pixmap) rgba() *image.RGBA {
	return &image.RGBA{
		Pix:    p.data,
		Stride: p.width * 4,
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
}

// Resample returns a bilinearly resampled copy of the pixmap at the given
// dimensions. If the dimensions already match, the receiver is returned
// unchanged.
func (p *Pixmap) Resample(width, height int) *Pixmap {
	if width == p.width && height == p.height {
		return p
	}
	out := NewPixmap(width, height)
	xdraw.BiLinear.Scale(out.rgba(), out.rgba().Bounds(), p.rgba(), p.rgba().Bounds(), xdraw.Src, nil)
	return out
}
