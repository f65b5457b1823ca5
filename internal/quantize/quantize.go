// Package quantize turns sampled RGB channels into CSS hex colors.
package quantize

import (
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/bdougie/boxshadow/internal/models"
)

// Func maps one 8-bit RGB sample to a hex color.
type Func func(r, g, b uint8) models.Color

// Full returns the six digit form, e.g. (255,0,128) -> "#ff0080".
func Full(r, g, b uint8) models.Color {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return c.Hex()
}

// Reduced scales every channel to 0-15 and returns the three digit form,
// e.g. (128,64,32) -> "#842".
func Reduced(r, g, b uint8) models.Color {
	buf := make([]byte, 0, 4)
	buf = append(buf, '#')
	for _, ch := range [3]uint8{r, g, b} {
		buf = strconv.AppendInt(buf, int64(nibble(ch)), 16)
	}
	return string(buf)
}

// nibble rounds half up, so 128/17 = 7.53 becomes 8.
func nibble(ch uint8) int {
	return int(math.Floor(float64(ch)/17 + 0.5))
}

// For picks Reduced when lessColors is set, Full otherwise.
func For(lessColors bool) Func {
	if lessColors {
		return Reduced
	}
	return Full
}
