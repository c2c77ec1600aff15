package valueobjects

import (
	"errors"
	"strings"
)

// FieldRef is a value object identifying a question within its domain.
// Uniqueness is per domain; two domains may reuse the same ref.
type FieldRef struct {
	value string
}

// NewFieldRef creates a FieldRef from a raw table cell
func NewFieldRef(raw string) (FieldRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FieldRef{}, errors.New("field ref cannot be empty")
	}
	return FieldRef{value: trimmed}, nil
}

// String returns the string representation of the FieldRef
func (f FieldRef) String() string {
	return f.value
}

// Equals checks if two FieldRefs are equal
func (f FieldRef) Equals(other FieldRef) bool {
	return f.value == other.value
}

// IsZero checks if the FieldRef is the zero value
func (f FieldRef) IsZero() bool {
	return f.value == ""
}

// MarshalJSON implements json.Marshaler
func (f FieldRef) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FieldRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("FieldRef must be a string")
	}
	f.value = strings.TrimSpace(string(data[1 : len(data)-1]))
	return nil
}
