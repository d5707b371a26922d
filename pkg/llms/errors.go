package llms

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrTransport is returned when no response was obtained from the model endpoint,
	// due to a network failure or a non-success HTTP status.
	ErrTransport = errors.New("model transport error")
	// ErrMalformedResponse is returned when the model endpoint replied,
	// but the payload can not be decoded into a Response.
	// An empty list of choices is malformed.
	ErrMalformedResponse = errors.New("malformed model response")
)

// TransportError marks err as ErrTransport.
func TransportError(err error) error {
	return errors.Mark(err, ErrTransport)
}

// MalformedResponseError marks err as ErrMalformedResponse.
func MalformedResponseError(err error) error {
	return errors.Mark(err, ErrMalformedResponse)
}
