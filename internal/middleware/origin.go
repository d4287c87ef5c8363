package middleware

import "strings"

// OriginAllowed validates an Origin header against the allow list.
// An empty origin is a same-origin or non-browser client and is always allowed.
func OriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return true
	}

	// If no allowed origins configured, reject all cross-origin requests
	if len(allowedOrigins) == 0 {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			// Wildcard - allow all (only use in development!)
			return true
		}
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}

	return false
}
