// internal/register/datatype.go
package register

import (
	"fmt"
	"strings"
)

// Datatype is the wire encoding of one logical register value.
type Datatype uint8

const (
	U8 Datatype = iota + 1
	U16
	U32
	U64
	S8
	S16
	S32
	S64
)

// Space selects which register table a request addresses.
// Address values may repeat across spaces; they never alias.
type Space uint8

const (
	// Input registers are read-only telemetry (FC 4).
	Input Space = iota + 1
	// Holding registers are read/write configuration (FC 3 / FC 6).
	Holding
)

func (s Space) String() string {
	switch s {
	case Input:
		return "input"
	case Holding:
		return "holding"
	default:
		return fmt.Sprintf("space(%d)", uint8(s))
	}
}

// FunctionCode is the Modbus read function used for the space.
func (s Space) FunctionCode() uint8 {
	switch s {
	case Input:
		return 4
	case Holding:
		return 3
	default:
		return 0
	}
}

var datatypeNames = map[Datatype]string{
	U8:  "U8",
	U16: "U16",
	U32: "U32",
	U64: "U64",
	S8:  "S8",
	S16: "S16",
	S32: "S32",
	S64: "S64",
}

func (d Datatype) String() string {
	if n, ok := datatypeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("datatype(%d)", uint8(d))
}

// Valid reports whether d is one of the known datatypes.
func (d Datatype) Valid() bool {
	_, ok := datatypeNames[d]
	return ok
}

// Words is the number of 16-bit registers one value occupies.
// 8-bit types still occupy a full register.
func (d Datatype) Words() int {
	switch d {
	case U8, U16, S8, S16:
		return 1
	case U32, S32:
		return 2
	case U64, S64:
		return 4
	default:
		return 0
	}
}

// Bits is the significant width of the value.
func (d Datatype) Bits() int {
	switch d {
	case U8, S8:
		return 8
	case U16, S16:
		return 16
	case U32, S32:
		return 32
	case U64, S64:
		return 64
	default:
		return 0
	}
}

// Signed reports two's-complement interpretation.
func (d Datatype) Signed() bool {
	return d >= S8 && d <= S64
}

// ParseDatatype accepts the register-table spelling ("U16", "s32", ...).
func ParseDatatype(s string) (Datatype, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for d, n := range datatypeNames {
		if n == want {
			return d, nil
		}
	}
	return 0, fmt.Errorf("register: unknown datatype %q", s)
}

// Length returns the word count for count consecutive values of d.
func Length(d Datatype, count int) (uint16, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("register: invalid datatype %d", uint8(d))
	}
	if count <= 0 {
		return 0, fmt.Errorf("register: count must be > 0, got %d", count)
	}
	n := d.Words() * count
	// Modbus limits one read to 125 registers.
	if n > 125 {
		return 0, fmt.Errorf("register: %d x %s needs %d registers (max 125)", count, d, n)
	}
	return uint16(n), nil
}
