package domain

import "errors"

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrTargetNotFound   = errors.New("target message not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrHubClosed        = errors.New("notification hub closed")
	ErrServiceStopped   = errors.New("service stopped")
)

// Outcome classifies the result of processing a single message or status item.
type Outcome string

const (
	OutcomeInserted          Outcome = "inserted"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeUpdated           Outcome = "updated"
	OutcomeIgnoredRegression Outcome = "ignoredRegression"
	OutcomeNotFound          Outcome = "notFound"
	OutcomeMalformed         Outcome = "malformed"
	OutcomeFailed            Outcome = "failed"
)
