package quantize

import (
	"fmt"
	"testing"
)

func TestFull(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    string
	}{
		{255, 0, 128, "#ff0080"},
		{0, 0, 0, "#000000"},
		{1, 2, 3, "#010203"},
		{17, 34, 51, "#112233"},
		{255, 255, 255, "#ffffff"},
	}
	for _, tt := range tests {
		if got := Full(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("Full(%d,%d,%d) = %q, want %q", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestFullMatchesZeroPaddedHex(t *testing.T) {
	for v := 0; v < 256; v++ {
		c := uint8(v)
		want := fmt.Sprintf("#%02x%02x%02x", c, 255-c, c/2)
		if got := Full(c, 255-c, c/2); got != want {
			t.Fatalf("Full(%d) = %q, want %q", v, got, want)
		}
	}
}

func TestReduced(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    string
	}{
		{255, 255, 255, "#fff"},
		{0, 0, 0, "#000"},
		{128, 64, 32, "#842"},
		{255, 0, 128, "#f08"},
		{8, 9, 26, "#012"},
	}
	for _, tt := range tests {
		if got := Reduced(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("Reduced(%d,%d,%d) = %q, want %q", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestReducedAlwaysThreeDigits(t *testing.T) {
	for v := 0; v < 256; v++ {
		c := uint8(v)
		got := Reduced(c, c, c)
		if len(got) != 4 {
			t.Fatalf("Reduced(%d) = %q, want 3 hex digits", v, got)
		}
		want := (v*2 + 17) / 34 // round(v/17) half up
		if fmt.Sprintf("#%x%x%x", want, want, want) != got {
			t.Fatalf("Reduced(%d) = %q, want level %d", v, got, want)
		}
	}
}

func TestFor(t *testing.T) {
	if got := For(true)(255, 255, 255); got != "#fff" {
		t.Errorf("For(true) = %q", got)
	}
	if got := For(false)(255, 255, 255); got != "#ffffff" {
		t.Errorf("For(false) = %q", got)
	}
}
