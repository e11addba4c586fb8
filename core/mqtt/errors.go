package mqtt

import "errors"

var (
	// ErrConnect is returned when the broker is unreachable or rejects the connection.
	ErrConnect = errors.New("mqtt connect failed")
	// ErrPublish is returned when a message could not be published.
	ErrPublish = errors.New("mqtt publish failed")
	// ErrNotConnected is returned by Publish before Connect succeeded.
	ErrNotConnected = errors.New("mqtt client not connected")
)
