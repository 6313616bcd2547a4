package math

import "golang.org/x/exp/constraints"

// Clamp limits f to [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	return max(low, min(f, high))
}

// Wrap maps i into [0, n), stepping backwards from 0 lands on n-1. n must be positive.
func Wrap[T constraints.Integer](i, n T) T {
	return ((i % n) + n) % n
}
