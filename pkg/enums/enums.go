// Package enums holds the string enums shared by models, DTOs and the
// Postgres enum types of the same name.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](all []T, value, what string) (T, error) {
	if v := T(value); slices.Contains(all, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", what, value)
}
