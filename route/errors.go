package route

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientWaypoints   = errors.New("at least 2 waypoints are required")
	ErrCollaboratorUnavailable = errors.New("routing service is not available")
	// ErrSuperseded is returned for a computation that a newer request replaced.
	ErrSuperseded = errors.New("route request superseded by a newer one")
)

// RoutingFailedError means the collaborator could not produce a route.
type RoutingFailedError struct {
	Reason string
	Err    error
}

func (e *RoutingFailedError) Error() string {
	return fmt.Sprintf("failed to calculate route: %s", e.Reason)
}

func (e *RoutingFailedError) Unwrap() error {
	return e.Err
}

// IsRoutingError reports whether err is one of the routing failures surfaced inline to the user.
func IsRoutingError(err error) bool {
	var rf *RoutingFailedError
	return errors.As(err, &rf) ||
		errors.Is(err, ErrInsufficientWaypoints) ||
		errors.Is(err, ErrCollaboratorUnavailable)
}
