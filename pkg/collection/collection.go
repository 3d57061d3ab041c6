// Package collection provides generic, functional-style helpers for slices.
//
// Every helper that returns a slice returns a non-nil one, so the result
// always encodes as a JSON array:
//
//	names := collection.Map(users, func(u models.User) string { return u.Name })
//	top := collection.Take(collection.SortByDesc(pages, byViews), 5)
package collection

import (
	"cmp"
	"slices"
)

// Map transforms each element of s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// CountBy counts the elements of s per key.
func CountBy[T any, K comparable](s []T, fn func(T) K) map[K]int {
	out := make(map[K]int)
	for _, v := range s {
		out[fn(v)]++
	}
	return out
}

// SortByDesc sorts s in place, stably, descending by the key fn extracts.
// Ties keep their original order.
func SortByDesc[T any, K cmp.Ordered](s []T, fn func(T) K) []T {
	slices.SortStableFunc(s, func(a, b T) int { return cmp.Compare(fn(b), fn(a)) })
	return s
}

// Sum adds up the values fn extracts.
func Sum[T any, N cmp.Ordered](s []T, fn func(T) N) N {
	var total N
	for _, v := range s {
		total += fn(v)
	}
	return total
}

// Take returns at most the first n elements.
func Take[T any](s []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if n >= len(s) {
		n = len(s)
	}
	return append(make([]T, 0, n), s[:n]...)
}
