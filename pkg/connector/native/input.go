// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"math"
)

// Loose accessors over the request input map. JSON numbers arrive as
// float64; callers get the zero value when a field is absent or mistyped.

func inputString(input map[string]any, key string) (string, bool) {
	v, ok := input[key].(string)
	return v, ok
}

func inputBool(input map[string]any, key string) (bool, bool) {
	v, ok := input[key].(bool)
	return v, ok
}

func inputNumber(input map[string]any, key string) (float64, bool) {
	switch v := input[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// clampInt reads an integer field and clamps it to [min, max], returning
// def when the field is absent or not numeric. Fractions are floored.
func clampInt(input map[string]any, key string, def, min, max int) int {
	v, ok := inputNumber(input, key)
	if !ok || math.IsNaN(v) {
		return def
	}
	n := int(math.Floor(v))
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
