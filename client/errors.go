package client

import (
	"errors"
	"fmt"
)

// ErrInvalidOutbox is returned by PostActivity when the session actor's
// outbox is not on a trusted origin. Raised before any network I/O.
var ErrInvalidOutbox = errors.New("outbox is not on a trusted origin")

// ErrInvalidTarget is returned when an advertised endpoint (proxy, media
// upload) is not on a trusted origin. Credentials are never presented to
// untrusted origins, so this too is raised before any network I/O.
var ErrInvalidTarget = errors.New("endpoint is not on a trusted origin")

// ErrActorMismatch is returned when an outgoing activity names an actor
// other than the session actor.
var ErrActorMismatch = errors.New("activity actor does not match session actor")

// CapabilityError indicates the session actor's server does not advertise
// an endpoint the requested operation needs.
type CapabilityError struct {
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("server does not support %s", e.Capability)
}

// RemoteError is a non-success response from a federation server.
type RemoteError struct {
	Status int
	URL    string
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: remote returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("%s: remote returned %d: %s", e.URL, e.Status, e.Body)
}
