// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

// ErrInvalidPermissions is the sentinel error wrapped by InvalidPermissionsError.
var ErrInvalidPermissions = errors.New("invalid script permissions")

type (
	// Permissions is the octal chmod string applied to generated scripts
	// (for example "770" or "0755"). The zero value is invalid: generated
	// scripts must always carry explicit permissions.
	Permissions string

	// InvalidPermissionsError is returned when a Permissions value is empty
	// or not an octal mode in the range 0-7777.
	InvalidPermissionsError struct {
		Value Permissions
	}
)

// String returns the permissions as configured.
func (p Permissions) String() string { return string(p) }

// FileMode parses the permissions into an fs.FileMode.
func (p Permissions) FileMode() (fs.FileMode, error) {
	raw := strings.TrimSpace(string(p))
	if raw == "" {
		return 0, &InvalidPermissionsError{Value: p}
	}
	n, err := strconv.ParseUint(raw, 8, 32)
	if err != nil || n > 0o7777 {
		return 0, &InvalidPermissionsError{Value: p}
	}
	return fs.FileMode(n).Perm(), nil
}

// IsValid returns whether the value parses as an octal file mode.
func (p Permissions) IsValid() (bool, []error) {
	if _, err := p.FileMode(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidPermissionsError.
func (e *InvalidPermissionsError) Error() string {
	if strings.TrimSpace(string(e.Value)) == "" {
		return "invalid script permissions: value is required"
	}
	return fmt.Sprintf("invalid script permissions %q: must be an octal mode such as 770", e.Value)
}

// Unwrap returns ErrInvalidPermissions for errors.Is() compatibility.
func (e *InvalidPermissionsError) Unwrap() error { return ErrInvalidPermissions }
