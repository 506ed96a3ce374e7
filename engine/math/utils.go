package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Align rounds v up to the next multiple of alignment. Alignment must be a
// power of two; zero leaves v untouched.
func Align[T constraints.Unsigned](v, alignment T) T {
	if alignment == 0 {
		return v
	}
	return (v + alignment - 1) &^ (alignment - 1)
}

// AlignDown rounds v down to a multiple of alignment (power of two).
func AlignDown[T constraints.Unsigned](v, alignment T) T {
	if alignment == 0 {
		return v
	}
	return v &^ (alignment - 1)
}

func IsPowerOfTwo[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= v.
func NextPowerOfTwo[T constraints.Unsigned](v T) T {
	if v <= 1 {
		return 1
	}
	p := T(1)
	for p < v {
		p <<= 1
	}
	return p
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
