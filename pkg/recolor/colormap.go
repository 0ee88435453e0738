package recolor

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette/brewer"
)

// NaNColor is given to vertices without a value.
var NaNColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

var brewerNames = map[Palette]struct {
	name  string
	stops int
}{
	Purples: {"Purples", 9},
	BrBG:    {"BrBG", 11},
}

// stops returns the colour stops of p from low to high.
func (p Palette) stops() ([]color.RGBA, error) {
	b, ok := brewerNames[p]
	if !ok {
		return nil, fmt.Errorf("unknown palette %q", p)
	}
	pal, err := brewer.GetPalette(brewer.TypeAny, b.name, b.stops)
	if err != nil {
		return nil, err
	}
	colors := pal.Colors()
	out := make([]color.RGBA, len(colors))
	for i, c := range colors {
		out[i] = color.RGBAModel.Convert(c).(color.RGBA)
	}
	return out, nil
}

// position returns where v falls in r, clamped to [0, 1]. A degenerate range
// places every value at 0.
func (r Range) position(v float64) float64 {
	if !(r.Max > r.Min) {
		return 0
	}
	return math.Max(0, math.Min(1, (v-r.Min)/(r.Max-r.Min)))
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + t*(float64(y)-float64(x))))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

// Colors maps every value onto the palette over the resolved range.
func (c Coloring) Colors() ([]color.RGBA, error) {
	stops, err := c.Palette.stops()
	if err != nil {
		return nil, err
	}
	out := make([]color.RGBA, len(c.Values))
	for i, v := range c.Values {
		if math.IsNaN(v) {
			out[i] = NaNColor
			continue
		}
		f := c.Range.position(v) * float64(len(stops)-1)
		lo := int(f)
		if lo == len(stops)-1 {
			out[i] = stops[lo]
			continue
		}
		out[i] = lerp(stops[lo], stops[lo+1], f-float64(lo))
	}
	return out, nil
}

// colors maps every channel value onto the channel ramp.
func (ch Channel) colors() []color.RGBA {
	out := make([]color.RGBA, len(ch.Values))
	for i, v := range ch.Values {
		t := 0.0
		if !math.IsNaN(v) {
			t = ch.Range.position(v)
		}
		out[i] = lerp(ch.Colors[0], ch.Colors[1], t)
	}
	return out
}

// Blend adds the green and magenta channel colours of every vertex.
func Blend(g, m Channel) []color.RGBA {
	gc, mc := g.colors(), m.colors()
	out := make([]color.RGBA, len(gc))
	for i := range out {
		add := func(x, y uint8) uint8 { return uint8(min(255, int(x)+int(y))) }
		out[i] = color.RGBA{R: add(gc[i].R, mc[i].R), G: add(gc[i].G, mc[i].G), B: add(gc[i].B, mc[i].B), A: 0xff}
	}
	return out
}
