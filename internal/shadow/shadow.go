// Package shadow encodes a grid of colors as a single CSS box-shadow list.
//
// Every color becomes one shadow placed at its grid cell. The first shadow is
// inset and spread to the size of one cell so it paints the element itself;
// the rest are plain offset shadows. Lengths use the Q unit.
package shadow

import (
	"math"
	"strconv"
	"strings"

	"github.com/bdougie/boxshadow/internal/models"
)

// Unit is appended to every non-zero length.
const Unit = "Q"

// Encode renders colors as a box-shadow value. Cell i sits at column
// i%rowWidth and row i/rowWidth, scaled by pitch. A frame whose length is
// not a multiple of rowWidth gets a short last row.
func Encode(colors []models.Color, pitch float64, displacement, blur, rowWidth int) string {
	if len(colors) == 0 || rowWidth <= 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(colors) * 20)
	for i, c := range colors {
		x := round(pitch*float64(i%rowWidth)) + displacement
		y := round(pitch*float64(i/rowWidth)) + displacement

		if i == 0 {
			b.WriteString("inset ")
			writeLength(&b, x)
			b.WriteByte(' ')
			writeLength(&b, y)
			b.WriteString(" 0 ")
			writeLength(&b, round(pitch))
			b.WriteByte(' ')
			b.WriteString(c)
			continue
		}

		b.WriteString(", ")
		writeLength(&b, x)
		b.WriteByte(' ')
		writeLength(&b, y)
		b.WriteByte(' ')
		writeLength(&b, blur)
		b.WriteByte(' ')
		b.WriteString(c)
	}
	return b.String()
}

// EncodeFrame is Encode driven by a stored geometry.
func EncodeFrame(frame models.Frame, g models.Geometry) string {
	return Encode(frame, g.Pitch, g.Displacement, g.Blur, g.RowWidth)
}

func writeLength(b *strings.Builder, n int) {
	if n == 0 {
		b.WriteByte('0')
		return
	}
	b.WriteString(strconv.Itoa(n))
	b.WriteString(Unit)
}

// round matches half-up rounding for the non-negative offsets produced here.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
