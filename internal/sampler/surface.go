package sampler

import (
	"image"
	"io"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"
)

// Surface is the square drawing buffer a source frame is scaled into before
// sampling. After sampling it holds the pixelated preview.
type Surface struct {
	size   int
	pixmap *gg.Pixmap
	dc     *gg.Context
	scaled *image.RGBA
}

// NewSurface creates a size x size surface.
func NewSurface(size int) *Surface {
	pm := gg.NewPixmap(size, size)
	return &Surface{
		size:   size,
		pixmap: pm,
		dc:     gg.NewContext(size, size, gg.WithPixmap(pm)),
		scaled: image.NewRGBA(image.Rect(0, 0, size, size)),
	}
}

// Size returns the side length in pixels.
func (s *Surface) Size() int {
	return s.size
}

// DrawImage scales src to fill the whole surface.
func (s *Surface) DrawImage(src image.Image) {
	draw.ApproxBiLinear.Scale(s.scaled, s.scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
	copy(s.pixmap.Data(), s.scaled.Pix)
}

// Pix returns the raw RGBA bytes, 4 per pixel, row-major.
func (s *Surface) Pix() []uint8 {
	return s.pixmap.Data()
}

// Image returns a copy of the current contents.
func (s *Surface) Image() image.Image {
	return s.pixmap.ToImage()
}

// EncodePNG writes the current contents as PNG.
func (s *Surface) EncodePNG(w io.Writer) error {
	return s.dc.EncodePNG(w)
}

func (s *Surface) clear() {
	s.dc.Clear()
}

func (s *Surface) fillRect(x, y, w, h int, r, g, b uint8) error {
	s.dc.SetRGB(float64(r)/255, float64(g)/255, float64(b)/255)
	s.dc.DrawRectangle(float64(x), float64(y), float64(w), float64(h))
	return s.dc.Fill()
}
