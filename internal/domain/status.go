package domain

import "fmt"

// Status follows the lattice sent < delivered < read.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

func (s Status) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Valid reports whether s is a member of the lattice.
func (s Status) Valid() bool {
	return s.rank() > 0
}

// After reports whether s is strictly later than other.
func (s Status) After(other Status) bool {
	return s.rank() > other.rank()
}

// ParseStatus converts a provider status string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unsupported status %q", ErrMalformedPayload, raw)
	}
	return s, nil
}
