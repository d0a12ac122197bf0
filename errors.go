package redwire

import "fmt"

// ProtocolError means the byte stream from the server could not be parsed
// as RESP2. It is fatal: the connection it occurred on must be closed and
// cannot be trusted to resume.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("redwire: protocol error: %v", e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError wraps a network-layer failure (dial, read, write). It is
// retryable up to the client's configured reconnect ceiling.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("redwire: transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ServerError wraps a well-formed RESP error reply (a '-' line). It is not
// fatal — it's data, not a connection fault.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return "redwire: " + e.Message }

// ModeError is raised locally, before anything is written to the wire,
// when a command is not admissible in the connection's current mode (e.g.
// issuing GET while subscribed). Only pub/sub mode restricts commands; the
// commands queued in a Transaction are not checked.
type ModeError struct {
	Message string
}

func (e *ModeError) Error() string { return "redwire: " + e.Message }

// InvalidArgument is raised at Connect time for a malformed Options value
// (e.g. a port outside 0-65535) before any socket is opened.
type InvalidArgument struct {
	Message string
}

func (e *InvalidArgument) Error() string { return "redwire: " + e.Message }
