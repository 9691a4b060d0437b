package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is a custom type that wraps a UUID string.
// It provides type-safe UUID generation, validation, and serialization for
// session ids and correlation ids.
type ID string

// NewID generates a new UUID v4 and returns it as an ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID parses and validates a string as a UUID, returning an ID.
// It returns an error if the string is not a valid UUID format.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}

	parsedUUID, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid UUID format: %w", err)
	}

	return ID(parsedUUID.String()), nil
}

// Validate checks if the ID is a valid UUID.
// Returns an error if the ID is invalid or empty.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}

	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid UUID format: %w", err)
	}

	return nil
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// IsZero checks if the ID is empty or zero-valued.
func (id ID) IsZero() bool {
	return id == ""
}

// MarshalJSON implements the json.Marshaler interface.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// It deserializes a JSON string into an ID and validates it.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal ID: %w", err)
	}

	if s == "" {
		*id = ""
		return nil
	}

	parsed, err := ParseID(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

// CorrelationID links a verdict returned to a caller with every audit entry,
// immediate or delayed, produced while evaluating it.
type CorrelationID string

// NewCorrelationID creates a new unique correlation ID.
// Uses UUID v4 for uniqueness and cryptographic randomness.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.New().String())
}

// ParseCorrelationID validates and converts a correlation ID string.
func ParseCorrelationID(s string) (CorrelationID, error) {
	c := CorrelationID(s)
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// String returns the string representation of the correlation ID.
func (c CorrelationID) String() string {
	return string(c)
}

// IsZero checks if the correlation ID is empty or zero-valued.
func (c CorrelationID) IsZero() bool {
	return c == ""
}

// Validate checks if the correlation ID is a valid UUID format.
func (c CorrelationID) Validate() error {
	if c.IsZero() {
		return fmt.Errorf("correlation ID cannot be empty")
	}

	if _, err := uuid.Parse(string(c)); err != nil {
		return fmt.Errorf("invalid correlation ID format: %w", err)
	}

	return nil
}
