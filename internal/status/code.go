// internal/status/code.go
package status

import (
	"errors"

	"github.com/tamzrod/energy-control/internal/response"
	"github.com/tamzrod/energy-control/internal/wallbox"
)

// CodeOf extracts a stable uint16 code from an error.
// Device exceptions keep their own code; other kinds map to fixed codes.
// Errors outside the taxonomy return CodeGeneric.
func CodeOf(err error) uint16 {
	if err == nil {
		return CodeNone
	}

	type coder interface{ Code() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	switch wallbox.KindOf(err) {
	case wallbox.KindTransport:
		var te *response.TransportError
		if errors.As(err, &te) && te.Timeout() {
			return CodeTimeout
		}
		return CodeTransport
	case wallbox.KindDecode:
		return CodeDecode
	case wallbox.KindPrecondition:
		return CodePrecondition
	default:
		return CodeGeneric
	}
}
