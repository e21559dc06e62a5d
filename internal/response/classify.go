// internal/response/classify.go
package response

import (
	"errors"
	"os"
	"strings"

	gmodbus "github.com/goburrow/modbus"
	smodbus "github.com/simonvetter/modbus"
)

// Kind tags an Outcome.
type Kind uint8

const (
	Success Kind = iota
	Transport
	Protocol
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Transport:
		return "transport_error"
	case Protocol:
		return "protocol_exception"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one exchange.
// Exactly one of Words (Success) or Cause (otherwise) is meaningful.
type Outcome struct {
	Kind  Kind
	Words []uint16
	Cause error
}

// Err returns nil for Success and the typed error otherwise.
func (o Outcome) Err() error {
	if o.Kind == Success {
		return nil
	}
	return o.Cause
}

// Exception returns the device exception code for Protocol outcomes.
func (o Outcome) Exception() (byte, bool) {
	var pe *ProtocolException
	if o.Kind == Protocol && errors.As(o.Cause, &pe) {
		return pe.ExceptionCode, true
	}
	return 0, false
}

var simonExceptions = map[smodbus.Error]byte{
	smodbus.ErrIllegalFunction:         ExceptionIllegalFunction,
	smodbus.ErrIllegalDataAddress:      ExceptionIllegalDataAddress,
	smodbus.ErrIllegalDataValue:        ExceptionIllegalDataValue,
	smodbus.ErrServerDeviceFailure:     ExceptionServerDeviceFailure,
	smodbus.ErrAcknowledge:             ExceptionAcknowledge,
	smodbus.ErrServerDeviceBusy:        ExceptionServerDeviceBusy,
	smodbus.ErrMemoryParityError:       ExceptionMemoryParityError,
	smodbus.ErrGWPathUnavailable:       ExceptionGatewayPathUnavailable,
	smodbus.ErrGWTargetFailedToRespond: ExceptionGatewayTargetFailedToRespond,
}

// Classify turns the raw result of one transport exchange into an Outcome.
// An exception response is never reported as success, and never as a
// transport failure.
func Classify(words []uint16, err error) Outcome {
	if err == nil {
		return Outcome{Kind: Success, Words: words}
	}

	// already classified (e.g. re-classifying a wrapped error)
	var pe *ProtocolException
	if errors.As(err, &pe) {
		return Outcome{Kind: Protocol, Cause: pe}
	}
	var te *TransportError
	if errors.As(err, &te) {
		return Outcome{Kind: Transport, Cause: te}
	}

	var ge *gmodbus.ModbusError
	if errors.As(err, &ge) {
		return Outcome{Kind: Protocol, Cause: &ProtocolException{
			Function:      ge.FunctionCode,
			ExceptionCode: ge.ExceptionCode,
		}}
	}

	var se smodbus.Error
	if errors.As(err, &se) {
		if code, ok := simonExceptions[se]; ok {
			return Outcome{Kind: Protocol, Cause: &ProtocolException{ExceptionCode: code}}
		}
	}

	return Outcome{Kind: Transport, Cause: &TransportError{Err: err, timeout: isTimeout(err)}}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, smodbus.ErrRequestTimedOut) {
		return true
	}
	// serial ports report timeouts as plain errors
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
