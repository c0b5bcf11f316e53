package collector

import (
	"errors"

	"StockPulse/internal/calculator"
)

var (
	// ErrProviderUnavailable covers transport failures, timeouts and non-2xx responses.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrMalformedResponse covers undecodable payloads, missing required fields and empty history.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInsufficientHistory is absorbed by the calculator and never fails an acquisition.
	ErrInsufficientHistory = calculator.ErrInsufficientHistory
	// ErrAllProvidersExhausted triggers the synthetic fallback; callers never see it.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	// ErrProviderPanic marks a fetcher that panicked instead of returning an error.
	ErrProviderPanic = errors.New("provider panicked")
)

// Outcome labels used in logs, metrics and snapshot provenance.
const (
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
	OutcomePanic       = "panic"
	OutcomeCanceled    = "canceled"
	OutcomeOther       = "other"
)

// Category maps an attempt error onto a short outcome label.
func Category(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrProviderPanic):
		return OutcomePanic
	case errors.Is(err, ErrMalformedResponse):
		return OutcomeMalformed
	case errors.Is(err, ErrProviderUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, errCanceled):
		return OutcomeCanceled
	default:
		return OutcomeOther
	}
}

var errCanceled = errors.New("acquisition canceled")
