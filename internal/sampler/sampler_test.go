package sampler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/bdougie/boxshadow/internal/quantize"
)

// quadrants returns a size x size image split into four solid colors.
func quadrants(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	colors := [4]color.RGBA{
		{255, 0, 0, 255}, {0, 255, 0, 255},
		{0, 0, 255, 255}, {255, 255, 255, 255},
	}
	half := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			q := 0
			if x >= half {
				q++
			}
			if y >= half {
				q += 2
			}
			img.SetRGBA(x, y, colors[q])
		}
	}
	return img
}

func TestBlocks(t *testing.T) {
	s := New(10, false)
	if got := s.Blocks(200, 200); got != 400 {
		t.Errorf("Blocks(200,200) = %d, want 400", got)
	}
	s = New(6, false)
	if got := s.Blocks(200, 200); got != 34*34 {
		t.Errorf("Blocks(200,200) stride 6 = %d, want %d", got, 34*34)
	}
}

func TestReadTopLeftPixel(t *testing.T) {
	// 3x2 buffer, stride 2: blocks at (0,0) and (2,0).
	pix := []uint8{
		1, 2, 3, 255, 9, 9, 9, 255, 4, 5, 6, 255,
		9, 9, 9, 255, 9, 9, 9, 255, 9, 9, 9, 255,
	}
	s := &Sampler{Stride: 2, Quantize: quantize.Full}
	got := s.Read(pix, 3, 2)
	want := []RGB{{1, 2, 3}, {4, 5, 6}}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSampleQuadrants(t *testing.T) {
	surf := NewSurface(20)
	surf.DrawImage(quadrants(20))

	s := New(10, false)
	frame, err := s.Sample(surf)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"#ff0000", "#00ff00", "#0000ff", "#ffffff"}
	if len(frame) != len(want) {
		t.Fatalf("frame has %d blocks, want %d", len(frame), len(want))
	}
	for i := range want {
		if frame[i] != want[i] {
			t.Errorf("block %d = %s, want %s", i, frame[i], want[i])
		}
	}
}

func TestSampleReducedPrecision(t *testing.T) {
	surf := NewSurface(20)
	surf.DrawImage(quadrants(20))

	frame, err := New(10, true).Sample(surf)
	if err != nil {
		t.Fatal(err)
	}
	if frame[0] != "#f00" || frame[3] != "#fff" {
		t.Fatalf("unexpected frame %v", frame)
	}
}

func TestSampleRepaintsPreview(t *testing.T) {
	surf := NewSurface(20)
	surf.DrawImage(quadrants(20))
	if _, err := New(10, false).Sample(surf); err != nil {
		t.Fatal(err)
	}

	// Interior of the bottom-left block stays solid blue.
	r, g, b, _ := surf.Image().At(4, 15).RGBA()
	if r>>8 > 1 || g>>8 > 1 || b>>8 < 254 {
		t.Fatalf("preview pixel = (%d,%d,%d), want blue", r>>8, g>>8, b>>8)
	}

	var buf bytes.Buffer
	if err := surf.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("preview is not a valid PNG: %v", err)
	}
}

func TestSampleInvalidStride(t *testing.T) {
	if _, err := (&Sampler{Quantize: quantize.Full}).Sample(NewSurface(8)); err == nil {
		t.Fatal("expected error for zero stride")
	}
}

func TestInvalidStrideYieldsNoBlocks(t *testing.T) {
	pix := make([]uint8, 8*8*4)
	for _, stride := range []int{0, -3} {
		s := &Sampler{Stride: stride, Quantize: quantize.Full}
		if n := s.Blocks(8, 8); n != 0 {
			t.Errorf("stride %d: Blocks = %d, want 0", stride, n)
		}
		if got := s.Read(pix, 8, 8); got != nil {
			t.Errorf("stride %d: Read returned %d samples, want none", stride, len(got))
		}
	}
}
