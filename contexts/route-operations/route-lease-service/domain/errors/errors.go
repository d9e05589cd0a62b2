package errors

import "errors"

var (
	ErrInvalidLeaseRequest      = errors.New("invalid route lease request")
	ErrLeaseNotFound            = errors.New("route lease not found")
	ErrRouteAlreadyHeld         = errors.New("route already held")
	ErrRouteCompleted           = errors.New("route already completed today")
	ErrRouteNotHeld             = errors.New("route not held by caller")
	ErrLeaseConcurrentUpdate    = errors.New("route lease modified concurrently")
	ErrLeaseVersionConflict     = errors.New("route lease version conflict")
	ErrUnknownTimezone          = errors.New("unknown tenant timezone")
	ErrRepositoryInvariantBroke = errors.New("repository invariant violated")
)
