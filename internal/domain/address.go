package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultInterface is the adapter acted on when none is configured.
const DefaultInterface = "hci0"

var (
	addressPattern   = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)
	interfacePattern = regexp.MustCompile(`^hci[0-9]+$`)
)

// Address is a 48-bit Bluetooth hardware address in canonical form:
// six colon-separated uppercase hex octets, e.g. "50:E0:85:65:80:00".
type Address string

// ParseAddress validates s and returns its canonical form.
// Lowercase hex is accepted; anything else fails with ErrInvalidAddress.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	if !addressPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address(strings.ToUpper(trimmed)), nil
}

// ValidAddress reports whether s is six colon-separated two-digit hex octets.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// String returns the canonical form.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

// Equal compares two addresses after normalization.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(strings.TrimSpace(string(a)), strings.TrimSpace(string(other)))
}

// ValidInterface reports whether name looks like a kernel HCI device (hci0, hci1, ...).
func ValidInterface(name string) bool {
	return interfacePattern.MatchString(name)
}

// ParseInterface returns name, or DefaultInterface when name is empty.
func ParseInterface(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultInterface, nil
	}
	if !ValidInterface(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterface, name)
	}
	return name, nil
}
