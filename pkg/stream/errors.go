package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is the terminal error of a session: either the
	// caller closed it, or the reconnect budget was exhausted. NextEvent
	// returns an error wrapping it instead of hanging.
	ErrSessionClosed = errors.New("stream session closed")

	// ErrAlreadyConnected is returned by Connect on a session that is
	// already connecting or connected.
	ErrAlreadyConnected = errors.New("stream session already connected")
)

// ServerError is an error frame decoded from the stream. It is surfaced
// through NextEvent as a typed error without terminating the session; the
// caller decides whether to keep consuming.
type ServerError struct {
	SubscriptionID string
	Channel        string
	Message        string
}

func (e *ServerError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("stream: server error on channel %q: %s", e.Channel, e.Message)
	}
	return fmt.Sprintf("stream: server error: %s", e.Message)
}

// DecodeError reports a malformed inbound frame. Malformed frames are
// logged, counted, and skipped; they never close the session and are not
// delivered to the consumer.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream: malformed frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
