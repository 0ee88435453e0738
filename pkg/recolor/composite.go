package recolor

import (
	"image/color"

	"surfacemetrics/internal/models"
	"surfacemetrics/pkg/spatial"
)

// Composite palettes order the two measured channels.
const (
	GreenMagenta = "green_magenta"
	MagentaGreen = "magenta_green"
)

// DefaultChannelRange is used for a channel without a requested range.
var DefaultChannelRange = Range{Min: 0, Max: 30}

// DefaultPaletteRange bounds the channel brightness of composite colours.
var DefaultPaletteRange = [2]uint8{40, 240}

// Channel is one resolved composite channel.
type Channel struct {
	Range  Range
	Values []float64
	// Colors holds the dark and bright ends of the channel ramp.
	Colors [2]color.RGBA
}

// CompositeRanges resolves the green and magenta channels of s from its ch1
// and ch2 slots. The magenta_green palette swaps the channels. ok is false
// when either slot is missing.
func CompositeRanges(s *models.Surface, palette string, green, magenta RangeSpec, brightness [2]uint8) (g, m Channel, ok bool) {
	ch1, ok1 := s.Attribute(models.AttrChannel1)
	ch2, ok2 := s.Attribute(models.AttrChannel2)
	if !ok1 || !ok2 {
		return Channel{}, Channel{}, false
	}
	if palette == MagentaGreen {
		ch1, ch2 = ch2, ch1
	}
	g = channel(ch1, green, brightness, false)
	m = channel(ch2, magenta, brightness, true)
	return g, m, true
}

func channel(stored []float64, spec RangeSpec, brightness [2]uint8, magenta bool) Channel {
	values := make([]float64, len(stored))
	copy(values, stored)
	spatial.ResetAllNaN(values)
	return Channel{
		Range:  spec.resolve(values, DefaultChannelRange),
		Values: values,
		Colors: [2]color.RGBA{ramp(brightness[0], magenta), ramp(brightness[1], magenta)},
	}
}

func ramp(level uint8, magenta bool) color.RGBA {
	if magenta {
		return color.RGBA{R: level, B: level, A: 0xff}
	}
	return color.RGBA{G: level, A: 0xff}
}
