package tradfri

import "math"

// MaxBrightness is the highest brightness the gateway accepts.
const MaxBrightness = 254

// PercentFromBrightness maps a 0-254 wire brightness onto 0-100 using the
// same non-linear scale as BrightnessFromPercent.
func PercentFromBrightness(dim uint8) int {
	var p float64
	switch {
	case dim <= 10:
		p = float64(dim)
	case dim <= 69:
		// Non-linear scaling for better precision.
		p = float64(dim)/2 + 5.5
	default:
		p = (float64(dim)-69)/3.1 + 40
	}
	if p > 100 {
		p = 100
	}
	return int(math.Floor(p + .5))
}

// BrightnessFromPercent converts a percentage (0-100) into a value between
// 0 and 254.
func BrightnessFromPercent(dim int) uint8 {
	newDim := 0
	if dim < 0 {
		newDim = 0
	} else if dim <= 10 {
		newDim = dim
	} else if dim <= 40 {
		newDim = dim*2 - 11
	} else {
		dimf := float64(dim-40)*3.1 + 69
		if dimf > MaxBrightness {
			newDim = MaxBrightness
		} else {
			newDim = int(dimf)
		}
	}
	return uint8(newDim)
}
