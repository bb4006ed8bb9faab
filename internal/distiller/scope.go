package distiller

import "strings"

// matchesScope reports whether the free-text scope appears in any of the
// given fields, case-insensitively.
func matchesScope(scope string, fields ...string) bool {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), scope) {
			return true
		}
	}
	return false
}
