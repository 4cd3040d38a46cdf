package validators

import "strings"

// BearerToken extracts the token from an Authorization header value. A bare
// token without the scheme is accepted.
func BearerToken(header string) (string, bool) {
	fields := strings.Fields(header)
	switch len(fields) {
	case 1:
		if strings.EqualFold(fields[0], "bearer") {
			return "", false
		}
		return fields[0], true
	case 2:
		if strings.EqualFold(fields[0], "bearer") {
			return fields[1], true
		}
	}
	return "", false
}
