// Package utils provides small, generic helpers for parsing and bounding
// request parameters. They are independent of domain or business logic.
package utils

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNotFinite is returned by ParseFloat for NaN and infinities.
var ErrNotFinite = errors.New("value must be a finite number")

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds n to [lo, hi].
func ClampInt(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

// ParseFloat parses a finite float64. Surrounding spaces are ignored; an
// empty string reports ok=false with a nil error.
func ParseFloat(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, ErrNotFinite
	}
	return v, true, nil
}

// FloatDefault is ParseFloat that falls back to def on empty or bad input.
func FloatDefault(s string, def float64) float64 {
	if v, ok, err := ParseFloat(s); err == nil && ok {
		return v
	}
	return def
}
