package claims

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Domain errors for claim operations.
var (
	ErrNotFound   = errors.New("claim not found")
	ErrValidation = errors.New("invalid claim input")
)

// StaleStageError reports a resume or cancel call targeting a stage the
// claim is no longer in. The call is rejected without mutating state.
type StaleStageError struct {
	ClaimID   uuid.UUID
	Requested Stage
	Current   Stage
}

func (e *StaleStageError) Error() string {
	return fmt.Sprintf(
		"claim %s is at stage %s, not %s",
		e.ClaimID, e.Current, e.Requested,
	)
}

// MapHTTPStatus maps claim domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	var stale *StaleStageError
	if errors.As(err, &stale) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
