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

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// NextPowerOfTwo returns the smallest power of two >= v. Values below 1 yield 1.
func NextPowerOfTwo[T constraints.Integer](v T) T {
	if v <= 1 {
		return 1
	}
	p := T(1)
	for p < v {
		p <<= 1
	}
	return p
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}

// FitWithin scales (w, h) down to fit inside maxDim on both axes, keeping the
// aspect ratio. Sizes already within bounds are returned unchanged.
func FitWithin[T constraints.Integer](w, h, maxDim T) (T, T) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := Max(T(1), T(int64(h)*int64(maxDim)/int64(w)))
		return maxDim, nh
	}
	nw := Max(T(1), T(int64(w)*int64(maxDim)/int64(h)))
	return nw, maxDim
}

// MipLevelCount is the number of levels in a full chain down to 1x1.
func MipLevelCount[T constraints.Integer](w, h T) int {
	levels := 1
	for w > 1 || h > 1 {
		w = Max(T(1), w/2)
		h = Max(T(1), h/2)
		levels++
	}
	return levels
}
