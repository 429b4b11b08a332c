package protocol

import "fmt"

// TransportError reports a connection that could not be established or that
// the peer closed before a terminated response arrived.
type TransportError struct {
	Addr string
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a record that does not parse into the expected shape.
type ProtocolError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "protocol error: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
