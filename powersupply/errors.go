package powersupply

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResources is returned when enumeration finds no instruments.
	ErrNoResources = errors.New("powersupply: no instrument resources found")

	// ErrNotConnected is returned by raw Write/Query on a session that
	// has not been connected.
	ErrNotConnected = errors.New("powersupply: session not connected")
)

// OpenError wraps a failure to open or identify an instrument.
type OpenError struct {
	Address string
	Err     error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("powersupply: open %s: %s", e.Address, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ReplyError wraps an instrument reply that could not be parsed.
type ReplyError struct {
	Command string
	Reply   string
	Err     error
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("powersupply: bad reply to %s: %q: %s", e.Command, e.Reply, e.Err)
}

func (e *ReplyError) Unwrap() error { return e.Err }

// ParseError reports a vendor or product field that is not a valid ID.
type ParseError struct {
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("powersupply: %q is not a decimal or hexadecimal ID", e.Value)
}
