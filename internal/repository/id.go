package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const blobIDPrefix = "bl-"

// NewBlobID returns a random blob row id.
func NewBlobID() string {
	return blobIDPrefix + uuid.NewString()
}

// ValidateBlobID checks that id was produced by NewBlobID.
func ValidateBlobID(id string) error {
	rest, ok := strings.CutPrefix(id, blobIDPrefix)
	if !ok {
		return fmt.Errorf("invalid blob id %q: missing %s prefix", id, blobIDPrefix)
	}
	if _, err := uuid.Parse(rest); err != nil {
		return fmt.Errorf("invalid blob id %q: %w", id, err)
	}
	return nil
}
