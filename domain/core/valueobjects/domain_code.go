package valueobjects

import (
	"errors"
	"strings"
)

// DomainCode is a value object identifying an independent question graph
// (e.g. "safeguarding", "fire", "police"). Codes are case-folded and trimmed
// so that differently cased spellings of the same domain merge into one graph.
type DomainCode struct {
	value string
}

// NewDomainCode normalizes and validates a raw domain string
func NewDomainCode(raw string) (DomainCode, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return DomainCode{}, errors.New("domain cannot be empty")
	}
	return DomainCode{value: normalized}, nil
}

// String returns the normalized code
func (d DomainCode) String() string {
	return d.value
}

// Label returns a display label for the domain (title-cased code)
func (d DomainCode) Label() string {
	if d.value == "" {
		return ""
	}
	return strings.ToUpper(d.value[:1]) + d.value[1:]
}

// Equals checks if two DomainCodes are equal
func (d DomainCode) Equals(other DomainCode) bool {
	return d.value == other.value
}

// IsZero checks if the DomainCode is the zero value
func (d DomainCode) IsZero() bool {
	return d.value == ""
}

// MarshalJSON implements json.Marshaler
func (d DomainCode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *DomainCode) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("DomainCode must be a string")
	}
	d.value = strings.ToLower(strings.TrimSpace(string(data[1 : len(data)-1])))
	return nil
}
