package sdk

import "github.com/kailas-cloud/retriever/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrProviderTransient  = domain.ErrProviderTransient
	ErrProviderPermanent  = domain.ErrProviderPermanent
	ErrCircuitOpen        = domain.ErrCircuitOpen
	ErrJobNotFound        = domain.ErrJobNotFound
	ErrJobCancelled       = domain.ErrJobCancelled
	ErrNoDocumentsIndexed = domain.ErrNoDocumentsIndexed
	ErrInvalidReport      = domain.ErrInvalidReport
)
