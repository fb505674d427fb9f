package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error is a failure response from the server. Code carries the server's
// machine-readable code when the body was well formed.
type Error struct {
	Message string
	Code    string
	Status  int
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsSessionInvalid reports whether err means the session token is no
// longer usable and the client should treat itself as logged out.
func IsSessionInvalid(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case "INVALID_SESSION", "EXPIRED_SESSION", "SESSION_NOT_FOUND", "SESSION_EXPIRED":
		return true
	}
	return false
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		apiErr.Message = resp.Status
		return apiErr
	}

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		apiErr.Message = resp.Status
		return apiErr
	}

	apiErr.Message = body.Error
	apiErr.Code = body.Code
	return apiErr
}
