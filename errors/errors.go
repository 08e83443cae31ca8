package errors

import "fmt"

var (
	// ErrAuthenticationRequired rejects a connect with no resolvable user.
	ErrAuthenticationRequired = fmt.Errorf("authentication required")
	// ErrDuplicateConnection means the transport registered the same
	// connection id twice. Invariant violation, treated as fatal by callers.
	ErrDuplicateConnection = fmt.Errorf("duplicate connection id")
	// ErrUnknownChannel is returned by a join against a channel that does
	// not exist in the catalog at call time.
	ErrUnknownChannel = fmt.Errorf("unknown channel")
	// ErrChannelNotFound is returned when a send or catalog operation
	// references a missing channel. Reported to the caller only.
	ErrChannelNotFound = fmt.Errorf("channel not found")
	// ErrDeliveryFailure means one recipient could not be reached. Logged,
	// never retried, never fails the overall operation.
	ErrDeliveryFailure = fmt.Errorf("delivery failure")
)
