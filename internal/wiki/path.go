package wiki

import (
	"fmt"
	"strings"
)

// ValidatePath sanitizes a slash-separated path relative to the repository
// root. It rejects anything that could escape the root or touch git
// metadata, and returns the cleaned form.
func ValidatePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty path", ErrValidation)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: path must be relative: %q", ErrValidation, p)
	}
	segments := strings.Split(p, "/")
	cleaned := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("%w: path traversal not allowed: %q", ErrValidation, p)
		case ".git":
			return "", fmt.Errorf("%w: git metadata is not addressable: %q", ErrValidation, p)
		}
		cleaned = append(cleaned, seg)
	}
	if len(cleaned) == 0 {
		return "", fmt.Errorf("%w: empty path", ErrValidation)
	}
	return strings.Join(cleaned, "/"), nil
}

// NormalizeArticlePath validates p and ensures the .md extension, matching
// the API convention that article paths may be given without it.
func NormalizeArticlePath(p string) (string, error) {
	cleaned, err := ValidatePath(p)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(cleaned, ".md") {
		cleaned += ".md"
	}
	return cleaned, nil
}
