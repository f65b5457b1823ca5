// Package sampler walks a capture surface in square blocks and turns each
// block into one quantized color.
package sampler

import (
	"fmt"

	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/quantize"
)

// RGB is one sampled pixel.
type RGB struct {
	R, G, B uint8
}

// Sampler reads one pixel per Stride x Stride block.
type Sampler struct {
	Stride   int
	Quantize quantize.Func
}

// New returns a sampler for the given stride and precision.
func New(stride int, lessColors bool) *Sampler {
	return &Sampler{Stride: stride, Quantize: quantize.For(lessColors)}
}

// Blocks returns how many samples a w x h buffer yields per frame, or 0 for
// a non-positive stride.
func (s *Sampler) Blocks(w, h int) int {
	if s.Stride <= 0 {
		return 0
	}
	return ceilDiv(w, s.Stride) * ceilDiv(h, s.Stride)
}

// Read takes the top-left pixel of every block in row-major order. There is
// no averaging and no padding: blocks hanging over the right or bottom edge
// are still represented by their top-left pixel. A non-positive stride
// yields nil.
func (s *Sampler) Read(pix []uint8, w, h int) []RGB {
	if s.Stride <= 0 {
		return nil
	}
	out := make([]RGB, 0, s.Blocks(w, h))
	for y := 0; y < h; y += s.Stride {
		for x := 0; x < w; x += s.Stride {
			i := (x + y*w) * 4
			out = append(out, RGB{R: pix[i], G: pix[i+1], B: pix[i+2]})
		}
	}
	return out
}

// Sample reads the surface, quantizes every block and repaints the surface
// as a grid of solid blocks. Each block is painted one pixel larger than the
// stride so no seams show between neighbours.
func (s *Sampler) Sample(surf *Surface) (models.Frame, error) {
	if s.Stride <= 0 {
		return nil, fmt.Errorf("invalid stride %d", s.Stride)
	}
	size := surf.Size()
	samples := s.Read(surf.Pix(), size, size)

	frame := make(models.Frame, len(samples))
	for i, px := range samples {
		frame[i] = s.Quantize(px.R, px.G, px.B)
	}

	surf.clear()
	cols := ceilDiv(size, s.Stride)
	for i, px := range samples {
		x := (i % cols) * s.Stride
		y := (i / cols) * s.Stride
		if err := surf.fillRect(x, y, s.Stride+1, s.Stride+1, px.R, px.G, px.B); err != nil {
			return nil, fmt.Errorf("failed to draw preview block %d: %w", i, err)
		}
	}
	return frame, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
