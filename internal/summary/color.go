package summary

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Color picks a stable, reasonably saturated color for a chart label so a
// language keeps its color between page loads.
func Color(label string) string {
	h := fnv.New32a()
	h.Write([]byte(label))
	sum := h.Sum32()

	hue := float64(sum%360) / 360
	sat := 0.55 + float64((sum>>9)%30)/100
	light := 0.45 + float64((sum>>17)%15)/100
	r, g, b := hslToRGB(hue, sat, light)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	conv := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}
