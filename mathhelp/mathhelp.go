package mathhelp

import "math"

func IsPow2(n uint) bool {
	return n != 0 && n&(n-1) == 0
}

func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func Degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

func RoundToPrec(f float64, prec int) float64 {
	shift := math.Pow(10, float64(prec))
	return math.Round(f*shift) / shift
}

func Bool2int(b bool) int {
	if b {
		return 1
	}
	return 0
}
