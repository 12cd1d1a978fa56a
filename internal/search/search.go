// Package search provides the ordered membership test used for dataset lookups.
package search

// Contains reports whether target occurs in sorted.
//
// sorted must already be in ascending lexicographic (byte) order; this is a
// caller obligation and is not re-validated here. The result is undefined for
// unsorted input, though the function never panics on it.
func Contains(sorted []string, target string) bool {
	low, high := 0, len(sorted)-1

	for low <= high {
		mid := low + (high-low)/2
		if sorted[mid] == target {
			return true
		}
		if sorted[mid] < target {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	return false
}
