package domain

import "errors"

var (
	// ErrTransport reports a failed or dropped stream connection. It is
	// terminal for the session and never retried.
	ErrTransport = errors.New("transport error")

	// ErrMalformedPayload reports that the terminal payload did not parse as
	// a campaign plan.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidObjective reports an objective outside the supported set.
	ErrInvalidObjective = errors.New("invalid objective")
)
