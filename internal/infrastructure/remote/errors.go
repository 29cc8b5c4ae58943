package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Remote failure taxonomy. Callers branch on these with errors.Is; the
// engine decides per operation whether a failure is absorbed into a local
// fallback or surfaced.
var (
	// ErrNetwork covers transport-level failures: the backend was never
	// reached, or the circuit breaker is refusing to try.
	ErrNetwork = errors.New("network failure")

	// ErrRemoteRejected covers responses the backend produced with a
	// non-success status.
	ErrRemoteRejected = errors.New("remote rejected request")

	// ErrMalformedPath is the known server quirk on bulk clear: the clear
	// route collides with the delete-by-id route and the server rejects the
	// path with a validation error instead of clearing the cart.
	ErrMalformedPath = errors.New("malformed server path")
)

// validationBody is the structured validation error shape the backend emits
// on path-parsing failures.
type validationBody struct {
	Detail json.RawMessage `json:"detail"`
}

// classifyStatus turns a non-2xx response into a typed error. Classification
// is by status code plus the structured detail field, never by matching on
// message text.
func classifyStatus(status int, body []byte) error {
	if status == http.StatusUnprocessableEntity {
		var v validationBody
		if err := json.Unmarshal(body, &v); err == nil && len(v.Detail) > 0 {
			return fmt.Errorf("%w: status %d", ErrMalformedPath, status)
		}
	}
	return fmt.Errorf("%w: status %d", ErrRemoteRejected, status)
}
