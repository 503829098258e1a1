package ingest

import (
	"fmt"
	"net/http"
	"time"
)

// backendStatusError reports a non-2xx response from an adapter backend.
type backendStatusError struct {
	service string
	status  int
}

func (e *backendStatusError) Error() string {
	return fmt.Sprintf("%s service returned status %d", e.service, e.status)
}

// retryableStatus reports whether a backend response is worth retrying:
// rate limiting and server-side errors are transient, other client errors
// are not.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// backoffDelay returns the delay before retry attempt (0-based): base doubled
// per attempt.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * (1 << attempt)
}
