// internal/response/errors.go
package response

import "fmt"

// Standard Modbus exception codes.
const (
	ExceptionIllegalFunction              byte = 1
	ExceptionIllegalDataAddress           byte = 2
	ExceptionIllegalDataValue             byte = 3
	ExceptionServerDeviceFailure          byte = 4
	ExceptionAcknowledge                  byte = 5
	ExceptionServerDeviceBusy             byte = 6
	ExceptionMemoryParityError            byte = 8
	ExceptionGatewayPathUnavailable       byte = 10
	ExceptionGatewayTargetFailedToRespond byte = 11
)

// ExceptionName renders the standard name of an exception code.
func ExceptionName(code byte) string {
	switch code {
	case ExceptionIllegalFunction:
		return "illegal function"
	case ExceptionIllegalDataAddress:
		return "illegal data address"
	case ExceptionIllegalDataValue:
		return "illegal data value"
	case ExceptionServerDeviceFailure:
		return "server device failure"
	case ExceptionAcknowledge:
		return "acknowledge"
	case ExceptionServerDeviceBusy:
		return "server device busy"
	case ExceptionMemoryParityError:
		return "memory parity error"
	case ExceptionGatewayPathUnavailable:
		return "gateway path unavailable"
	case ExceptionGatewayTargetFailedToRespond:
		return "gateway target device failed to respond"
	default:
		return "unknown"
	}
}

// TransportError means the exchange did not complete: link failure,
// timeout or a malformed frame. No payload is available.
type TransportError struct {
	Err     error
	timeout bool
}

func (e *TransportError) Error() string {
	if e.timeout {
		return fmt.Sprintf("transport timeout: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the exchange ran out of time.
func (e *TransportError) Timeout() bool { return e.timeout }

// ProtocolException is a well-formed rejection from the device.
// The exchange completed and the answer is authoritative.
type ProtocolException struct {
	Function      byte
	ExceptionCode byte
}

func (e *ProtocolException) Error() string {
	if e.Function == 0 {
		return fmt.Sprintf("modbus exception %d (%s)", e.ExceptionCode, ExceptionName(e.ExceptionCode))
	}
	return fmt.Sprintf("modbus exception %d (%s), function %d",
		e.ExceptionCode, ExceptionName(e.ExceptionCode), e.Function&0x7F)
}

// Code exposes the exception code for status reporting.
func (e *ProtocolException) Code() uint16 { return uint16(e.ExceptionCode) }
