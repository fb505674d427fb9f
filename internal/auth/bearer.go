package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header.
// Returns "" when the header is absent or not a Bearer credential.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
}

// tokenRequest is the body shape shared by refresh and logout.
type tokenRequest struct {
	SessionToken string `json:"sessionToken"`
}

// tokenFromRequest resolves a session token for endpoints that accept it
// from the Authorization header or the request body. The header wins when
// both are present. A malformed or empty body is not an error here; the
// caller decides what a missing token means.
func tokenFromRequest(r *http.Request) string {
	if token := BearerToken(r); token != "" {
		return token
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.SessionToken)
}
