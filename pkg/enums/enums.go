// Package enums holds the string-backed value sets persisted by the catalog.
package enums

import "slices"

func known[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}
