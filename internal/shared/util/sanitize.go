package util

import (
	"errors"
	"strings"
)

// SanitizeFileName flattens path separators out of a client-supplied
// name so it can be used as a single storage path segment. Names that
// carry a traversal sequence are rejected outright rather than
// repaired.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "", errors.New("invalid file name")
	}
	return cleaned, nil
}
