package auth

import (
	"net/http"
	"strings"
)

// TokenFromRequest returns the value of the first cookie whose name begins
// with prefix. An empty string means no credential was presented.
func TokenFromRequest(r *http.Request, prefix string) string {
	for _, c := range r.Cookies() {
		if strings.HasPrefix(c.Name, prefix) && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// TokenFromHeader is TokenFromRequest for a raw Cookie header value
func TokenFromHeader(header, prefix string) string {
	if header == "" {
		return ""
	}
	r := &http.Request{Header: http.Header{"Cookie": {header}}}
	return TokenFromRequest(r, prefix)
}
