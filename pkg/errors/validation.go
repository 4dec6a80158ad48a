package errors

import (
	"strings"
	"unicode"
)

// ValidateDepotID validates a depot identifier before it is sent to a data
// provider or used as a cache key and URL segment.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateDepotID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidDepot, "depot id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidDepot, "depot id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDepot, "depot id contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidDepot, "depot id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateRecordPath validates a record file path given on the command line
// or in the config file. Only the file extension and obvious garbage are
// checked; existence is left to the caller.
func ValidateRecordPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "record file path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"),
		strings.HasSuffix(lower, ".yaml"),
		strings.HasSuffix(lower, ".yml"):
		return nil
	}
	return New(ErrCodeInvalidFormat, "record file must be .json, .yaml or .yml: %s", path)
}
