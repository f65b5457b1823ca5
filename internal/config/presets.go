package config

import "fmt"

// Preset is a named size/divider/pixel-size combination where the sample grid
// lines up with the shadow grid.
type Preset struct {
	Size      int
	Divider   int
	PixelSize int
}

// Presets are ordered from coarsest to finest.
var Presets = []Preset{
	{Size: 200, Divider: 20, PixelSize: 10},
	{Size: 200, Divider: 23, PixelSize: 9},
	{Size: 200, Divider: 25, PixelSize: 8},
	{Size: 200, Divider: 29, PixelSize: 7},
	{Size: 200, Divider: 34, PixelSize: 6},
	{Size: 200, Divider: 40, PixelSize: 5},
	{Size: 200, Divider: 50, PixelSize: 4},
	{Size: 200, Divider: 67, PixelSize: 3},
	{Size: 200, Divider: 100, PixelSize: 2},
	{Size: 200, Divider: 200, PixelSize: 1},
}

// ApplyPreset overwrites the size settings with Presets[index].
func (c *Config) ApplyPreset(index int) error {
	if index < 0 || index >= len(Presets) {
		return fmt.Errorf("preset %d not in [0,%d]: %w", index, len(Presets)-1, ErrOutOfRange)
	}
	p := Presets[index]
	c.Size = p.Size
	c.Divider = p.Divider
	c.PixelSize = p.PixelSize
	return nil
}
