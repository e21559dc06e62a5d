// internal/wallbox/errors.go
package wallbox

import (
	"errors"
	"fmt"

	"github.com/tamzrod/energy-control/internal/response"
)

// Kind is the failure taxonomy surfaced to callers.
type Kind uint8

const (
	KindNone Kind = iota
	KindPrecondition
	KindTransport
	KindProtocol
	KindDecode
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPrecondition:
		return "precondition"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by operations on a closed Device.
var ErrClosed = errors.New("wallbox: device closed")

// PreconditionError is a caller mistake rejected before any I/O.
type PreconditionError struct {
	Op  string
	Msg string
	Err error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// DecodeError is a successful response whose value is outside the code
// set the register map defines for it.
type DecodeError struct {
	Op      string
	Address uint16
	Raw     uint64
	Msg     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: register %d: undefined value %d: %s", e.Op, e.Address, e.Raw, e.Msg)
}

// KindOf classifies any error returned by this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var pre *PreconditionError
	if errors.As(err, &pre) {
		return KindPrecondition
	}
	var dec *DecodeError
	if errors.As(err, &dec) {
		return KindDecode
	}
	var pe *response.ProtocolException
	if errors.As(err, &pe) {
		return KindProtocol
	}
	var te *response.TransportError
	if errors.As(err, &te) {
		return KindTransport
	}
	return KindUnknown
}

func precondition(op, format string, args ...any) error {
	return &PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
