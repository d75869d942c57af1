package addr

import (
	"strings"
)

// Domain extracts the normalized domain from an email address.
// Returns false when the address has no usable domain part.
func Domain(email string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return strings.ToLower(parts[1]), true
}

// Normalize lowercases and trims an address or domain for comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DomainIn checks whether the address's domain is in the given set.
// Set entries are expected to be normalized already.
func DomainIn(email string, domains []string) bool {
	domain, ok := Domain(email)
	if !ok {
		return false
	}
	for _, d := range domains {
		if d == domain {
			return true
		}
	}
	return false
}
