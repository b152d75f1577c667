package errors

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxJobs bounds the parse parallelism accepted from flags and config.
const MaxJobs = 1024

// ValidateSourceName validates the display name of an input source.
// The name appears in error messages and HTTP responses, so it must be
// printable UTF-8 without control characters.
func ValidateSourceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "source name cannot be empty")
	}

	if len(name) > 4096 {
		return New(ErrCodeInvalidInput, "source name too long (max 4096 bytes)")
	}

	if !utf8.ValidString(name) {
		return New(ErrCodeInvalidInput, "source name is not valid UTF-8")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "source name contains invalid control characters")
		}
	}

	return nil
}

// ValidateOutputPath validates a destination file path.
// An empty path means standard output and is valid.
//
// Validation rules:
//   - No null bytes or control characters
//   - Must not end in a path separator (a directory is not a destination)
func ValidateOutputPath(path string) error {
	if path == "" {
		return nil
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "output path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\") {
		return New(ErrCodeInvalidPath, "output path %q names a directory", path)
	}

	return nil
}

// ValidateJobs validates a parse parallelism setting. Zero means "use the default".
func ValidateJobs(n int) error {
	if n < 0 {
		return New(ErrCodeInvalidInput, "jobs must not be negative (got %d)", n)
	}
	if n > MaxJobs {
		return New(ErrCodeInvalidInput, "jobs too large (max %d, got %d)", MaxJobs, n)
	}
	return nil
}
