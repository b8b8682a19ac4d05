// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPositiveInt is the sentinel error wrapped by InvalidPositiveIntError.
var ErrInvalidPositiveInt = errors.New("invalid positive integer")

type (
	// PositiveInt is an integer setting that must be greater than zero, such as
	// a batch size or a thread count. The zero value is invalid.
	PositiveInt int

	// InvalidPositiveIntError is returned when a PositiveInt is zero or negative,
	// or when a string cannot be parsed into one.
	InvalidPositiveIntError struct {
		Raw string
	}
)

// ParsePositiveInt parses s as a base-10 integer greater than zero.
// Surrounding whitespace is ignored.
func ParsePositiveInt(s string) (PositiveInt, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, &InvalidPositiveIntError{Raw: s}
	}
	return PositiveInt(n), nil
}

// Int returns the value as a plain int.
func (p PositiveInt) Int() int { return int(p) }

// String returns the decimal string representation.
func (p PositiveInt) String() string { return strconv.Itoa(int(p)) }

// IsValid returns whether the value is greater than zero.
func (p PositiveInt) IsValid() (bool, []error) {
	if p <= 0 {
		return false, []error{&InvalidPositiveIntError{Raw: p.String()}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPositiveIntError.
func (e *InvalidPositiveIntError) Error() string {
	return fmt.Sprintf("invalid positive integer %q: must be a whole number greater than zero", e.Raw)
}

// Unwrap returns ErrInvalidPositiveInt for errors.Is() compatibility.
func (e *InvalidPositiveIntError) Unwrap() error { return ErrInvalidPositiveInt }
