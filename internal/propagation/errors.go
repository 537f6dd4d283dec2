package propagation

import (
	"errors"
	"fmt"

	"wifi-rssi-sim/internal/mobility"
)

var (
	// ErrConflict matches any *ConflictError.
	ErrConflict = errors.New("conflicting rssi override")
	// ErrUnknownEndpoint matches any *UnknownEndpointError.
	ErrUnknownEndpoint = errors.New("unknown endpoint")
)

// ConflictError reports an override registration whose value disagrees with
// the one already active for the same ordered pair.
type ConflictError struct {
	Sender    mobility.EndpointID
	Receiver  mobility.EndpointID
	Existing  float64
	Requested float64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("rssi override %s -> %s already set to %.2f dBm, cannot set %.2f dBm",
		e.Sender, e.Receiver, e.Existing, e.Requested)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// UnknownEndpointError reports an evaluation for an endpoint that has neither
// a registered position nor a matching override.
type UnknownEndpointError struct {
	ID mobility.EndpointID
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint %s: no position registered and no override matches", e.ID)
}

func (e *UnknownEndpointError) Is(target error) bool { return target == ErrUnknownEndpoint }
