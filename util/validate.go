package util

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateUUID parses value as a UUID on behalf of field. Blank values and
// the nil UUID are rejected.
func ValidateUUID(field, value string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uuid.Nil, fmt.Errorf("%s cannot be empty", field)
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: invalid UUID format: %w", field, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s: nil UUID is not allowed", field)
	}
	return id, nil
}
