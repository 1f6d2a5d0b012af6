package domain

import "errors"

var (
	// ErrProviderTransient signals a retryable provider failure (timeout, 5xx, reset).
	ErrProviderTransient = errors.New("transient provider error")
	// ErrProviderPermanent signals a non-retryable provider failure (auth, validation).
	ErrProviderPermanent = errors.New("permanent provider error")
	// ErrCircuitOpen signals a call rejected by an open circuit breaker.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrJobNotFound signals a lookup of an unknown analysis job.
	ErrJobNotFound = errors.New("analysis job not found")
	// ErrJobCancelled signals an analysis job cancelled mid-flight.
	ErrJobCancelled = errors.New("analysis job cancelled")
	// ErrNoDocumentsIndexed signals a search against an empty index.
	ErrNoDocumentsIndexed = errors.New("no documents indexed")
	// ErrInvalidReport signals a completion output that does not parse into a report.
	ErrInvalidReport = errors.New("invalid analysis report")
)

// IsTransient reports whether err should be retried by the resilience layer.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderTransient)
}
