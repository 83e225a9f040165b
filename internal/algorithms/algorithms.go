// Package algorithms holds the generic slice transforms the derivation
// pipelines are written in terms of.
package algorithms

// Map returns a new slice holding f applied to each element of s.
func Map[T, R any](s []T, f func(T) R) []R {
	r := make([]R, 0, len(s))
	for _, v := range s {
		r = append(r, f(v))
	}
	return r
}

// Filter returns a new slice holding the elements of s that satisfy f,
// in their original order.
func Filter[T any](s []T, f func(T) bool) []T {
	r := make([]T, 0, len(s))
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}
