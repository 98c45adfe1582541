package util

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var reRunID = regexp.MustCompile(`^[A-Za-z0-9_-]{21}$`)

// NewRunID returns a fresh 21 character nanoid identifying one dispatch run.
func NewRunID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("nanoid: %w", err)
	}
	return id, nil
}

// IsRunID reports whether s has the shape of an id from NewRunID.
func IsRunID(s string) bool {
	return reRunID.MatchString(s)
}
