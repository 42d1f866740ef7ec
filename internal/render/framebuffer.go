package render

import (
	"image"
	"image/color"
)

// FrameBuffer is an RGBA canvas sharing its pixels with Image.
type FrameBuffer struct {
	W      int
	H      int
	Pixels []uint8 // RGBA
}

func NewFrameBuffer(w, h int) *FrameBuffer {
	w, h = max(w, 1), max(h, 1)
	return &FrameBuffer{W: w, H: h, Pixels: make([]uint8, w*h*4)}
}

func (fb *FrameBuffer) Image() *image.RGBA {
	return &image.RGBA{Pix: fb.Pixels, Stride: fb.W * 4, Rect: image.Rect(0, 0, fb.W, fb.H)}
}

func (fb *FrameBuffer) Clear(c color.RGBA) {
	fb.FillRect(0, 0, fb.W, fb.H, c)
}

// FillRect paints the part of the rectangle inside the buffer.
func (fb *FrameBuffer) FillRect(x, y, w, h int, c color.RGBA) {
	r := image.Rect(x, y, x+w, y+h).Intersect(image.Rect(0, 0, fb.W, fb.H))
	if r.Empty() {
		return
	}
	for row := r.Min.Y; row < r.Max.Y; row++ {
		off := (row*fb.W + r.Min.X) * 4
		for col := 0; col < r.Dx(); col++ {
			idx := off + col*4
			fb.Pixels[idx+0] = c.R
			fb.Pixels[idx+1] = c.G
			fb.Pixels[idx+2] = c.B
			fb.Pixels[idx+3] = c.A
		}
	}
}

func (fb *FrameBuffer) StrokeRect(x, y, w, h, line int, c color.RGBA) {
	line = max(line, 1)
	fb.FillRect(x, y, w, line, c)
	fb.FillRect(x, y+h-line, w, line, c)
	fb.FillRect(x, y, line, h, c)
	fb.FillRect(x+w-line, y, line, h, c)
}
