package validators

import "strings"

// NormalizeEmail trims the address and lowercases it so that lookups and
// uniqueness checks don't depend on how the user typed it
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
