package utils

// Map applies fn to every element of slice and returns the results in order.
func Map[T, U any](slice []T, fn func(T) U) []U {
	result := make([]U, len(slice))
	for i, v := range slice {
		result[i] = fn(v)
	}
	return result
}

// Filter keeps the elements for which predicate holds.
func Filter[T any](slice []T, predicate func(T) bool) []T {
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if predicate(v) {
			result = append(result, v)
		}
	}
	return result
}

// Count returns how many elements satisfy predicate.
func Count[T any](slice []T, predicate func(T) bool) int {
	return Reduce(slice, func(count int, v T) int {
		if predicate(v) {
			return count + 1
		}
		return count
	}, 0)
}

// Reduce folds slice into a single value, left to right.
func Reduce[T, U any](slice []T, fn func(U, T) U, initial U) U {
	result := initial
	for _, v := range slice {
		result = fn(result, v)
	}
	return result
}
