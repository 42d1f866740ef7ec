package render

import (
	"image"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Draw paints the layout on a fresh page.
func Draw(l *Layout, th Theme) *FrameBuffer {
	fb := NewFrameBuffer(l.Width, l.Height)
	fb.Clear(th.Page)
	fb.StrokeRect(0, 0, fb.W, fb.H, 1, th.Border)

	img := fb.Image()
	for _, line := range l.Lines {
		baseline := line.Y + line.Ascent
		if line.Bullet() {
			side := max(line.Ascent/4, 2)
			fb.FillRect(line.X-th.IndentPx/2-side/2, baseline-line.Ascent/2-side/2, side, side, th.Text)
		}
		x := line.X
		for _, seg := range line.Segments {
			if seg.Text != "" {
				d := font.Drawer{
					Dst:  img,
					Src:  image.NewUniform(seg.Attr.Color),
					Face: seg.face,
					Dot:  fixed.P(x, baseline),
				}
				d.DrawString(seg.Text)
				if seg.Attr.Underline {
					thick := max(seg.Attr.SizePt/14, 1)
					fb.FillRect(x, baseline+max(seg.face.Metrics().Descent.Round()/2, 1), seg.Width, thick, seg.Attr.Color)
				}
			}
			x += seg.Width
		}
	}
	return fb
}

// WritePNG encodes fb as PNG, scaled down to width pixels when width is
// positive and smaller than the page.
func WritePNG(w io.Writer, fb *FrameBuffer, width int) error {
	var img image.Image = fb.Image()
	if width > 0 && width < fb.W {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	return imaging.Encode(w, img, imaging.PNG)
}
