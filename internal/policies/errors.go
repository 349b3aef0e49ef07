package policies

import (
	"errors"
	"net/http"
)

// Domain errors for policy operations.
var (
	ErrNotFound  = errors.New("policy not found")
	ErrNoMatch   = errors.New("no product matches the claim")
	ErrDuplicate = errors.New("policy already exists")
)

// MapHTTPStatus maps policy domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoMatch) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
