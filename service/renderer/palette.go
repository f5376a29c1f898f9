package renderer

import (
	"image/color"
	"math"
)

// Palette returns n well separated colours, one per class id, with hues
// evenly spaced around the colour wheel.
func Palette(n int) []color.RGBA {
	if n < 1 {
		return nil
	}
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = hlsToRGBA(float64(i)/float64(n), 0.55, 0.95)
	}
	return out
}

// ColorFor picks the palette entry of a class id, wrapping ids past the end.
func ColorFor(palette []color.RGBA, classID int) color.RGBA {
	if len(palette) == 0 {
		return color.RGBA{0, 255, 0, 255}
	}
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

func hlsToRGBA(h, l, s float64) color.RGBA {
	var m2 float64
	if l <= 0.5 {
		m2 = l * (1 + s)
	} else {
		m2 = l + s - l*s
	}
	m1 := 2*l - m2
	return color.RGBA{
		R: channel(m1, m2, h+1.0/3),
		G: channel(m1, m2, h),
		B: channel(m1, m2, h-1.0/3),
		A: 255,
	}
}

func channel(m1, m2, hue float64) uint8 {
	hue -= math.Floor(hue)
	var v float64
	switch {
	case hue < 1.0/6:
		v = m1 + (m2-m1)*hue*6
	case hue < 0.5:
		v = m2
	case hue < 2.0/3:
		v = m1 + (m2-m1)*(2.0/3-hue)*6
	default:
		v = m1
	}
	return uint8(math.Round(v * 255))
}
