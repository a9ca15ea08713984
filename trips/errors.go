package trips

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnresolved marks a city that could not be turned into a GeoPoint.
var ErrUnresolved = errors.New("city could not be resolved")

// DataQualityError reports a raw record that cannot enter the pipeline.
type DataQualityError struct {
	Index  int
	Field  string
	Record TripRecord
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("record %d (%s, ref %q): missing %s", e.Index, e.Record.Traveler, e.Record.Reference, e.Field)
}

// FailureCategory normalizes external service failures.
type FailureCategory string

const (
	FailureTimeout        FailureCategory = "timeout"
	FailureBadData        FailureCategory = "bad_data"
	FailureProviderOutage FailureCategory = "provider_outage"
	FailureRateLimited    FailureCategory = "rate_limited"
	FailureRejected       FailureCategory = "rejected"
	FailureInternal       FailureCategory = "internal"
)

// Unavailable reports whether the category means the service could not
// answer at all, as opposed to answering with a refusal or a bad payload.
func (c FailureCategory) Unavailable() bool {
	switch c {
	case FailureTimeout, FailureProviderOutage, FailureRateLimited:
		return true
	}
	return false
}

// ExternalServiceError wraps a failed geocoding or routing call. It is never
// cached; the affected rows are retried on the next run.
type ExternalServiceError struct {
	Service  string
	Category FailureCategory
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Service, e.Category, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Throttled reports whether the remote side pushed back on request volume.
func (e *ExternalServiceError) Throttled() bool {
	return e.Category == FailureRateLimited
}

// NewExternalServiceError builds an ExternalServiceError.
func NewExternalServiceError(service string, category FailureCategory, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Category: category, Err: err}
}

// CategoryForStatus maps a non-200 HTTP status to a failure category.
func CategoryForStatus(status int) FailureCategory {
	switch {
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return FailureTimeout
	case status >= 500:
		return FailureProviderOutage
	case status >= 400:
		return FailureRejected
	default:
		return FailureBadData
	}
}

// CategoryForTransport maps a transport-level error to a failure category.
func CategoryForTransport(err error) FailureCategory {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureProviderOutage
}

// CategoryOf extracts the failure category from err.
func CategoryOf(err error) FailureCategory {
	var se *ExternalServiceError
	if errors.As(err, &se) {
		return se.Category
	}
	return FailureInternal
}
