// internal/register/codec.go
package register

import (
	"errors"
	"fmt"
	"math"
)

// ErrWordCount reports a payload whose length does not match the request
// geometry. It means the device and the register map disagree.
var ErrWordCount = errors.New("register: word count mismatch")

// ErrRange reports a value that does not fit the target datatype.
var ErrRange = errors.New("register: value out of range")

// Value is one decoded register value.
// Raw holds the bits as received; Int and Uint interpret them.
type Value struct {
	Type Datatype
	Raw  uint64
}

// Uint returns the value as unsigned. For signed types this is the raw
// two's-complement pattern.
func (v Value) Uint() uint64 { return v.Raw }

// Int returns the value sign-extended over its datatype width.
func (v Value) Int() int64 {
	bits := v.Type.Bits()
	if !v.Type.Signed() || bits == 0 || bits == 64 {
		return int64(v.Raw)
	}
	shift := 64 - bits
	return int64(v.Raw<<shift) >> shift
}

// Decode converts a raw big-endian word sequence into count values of dt.
// The first word of each value holds its most significant 16 bits.
func Decode(words []uint16, dt Datatype, count int) ([]Value, error) {
	n, err := Length(dt, count)
	if err != nil {
		return nil, err
	}
	if len(words) != int(n) {
		return nil, fmt.Errorf("%w: got=%d want=%d (%d x %s)", ErrWordCount, len(words), n, count, dt)
	}

	step := dt.Words()
	out := make([]Value, 0, count)
	for i := 0; i < count; i++ {
		var raw uint64
		for _, w := range words[i*step : (i+1)*step] {
			raw = raw<<16 | uint64(w)
		}
		out = append(out, Value{Type: dt, Raw: mask(raw, dt)})
	}
	return out, nil
}

// Encode converts raw bits into the big-endian word sequence for dt.
// Bits above the datatype width must be zero.
func Encode(raw uint64, dt Datatype) ([]uint16, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("register: invalid datatype %d", uint8(dt))
	}
	if mask(raw, dt) != raw {
		return nil, fmt.Errorf("%w: 0x%x does not fit %s", ErrRange, raw, dt)
	}
	n := dt.Words()
	out := make([]uint16, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = uint16(raw)
		raw >>= 16
	}
	return out, nil
}

// EncodeInt encodes a signed value, checking it fits dt.
func EncodeInt(v int64, dt Datatype) ([]uint16, error) {
	bits := dt.Bits()
	if bits == 0 {
		return nil, fmt.Errorf("register: invalid datatype %d", uint8(dt))
	}
	if dt.Signed() {
		if bits < 64 {
			lo := -(int64(1) << (bits - 1))
			hi := int64(1)<<(bits-1) - 1
			if v < lo || v > hi {
				return nil, fmt.Errorf("%w: %d does not fit %s", ErrRange, v, dt)
			}
		}
		return Encode(mask(uint64(v), dt), dt)
	}
	if v < 0 {
		return nil, fmt.Errorf("%w: %d does not fit %s", ErrRange, v, dt)
	}
	return Encode(uint64(v), dt)
}

// EncodeUint encodes an unsigned value, checking it fits dt.
func EncodeUint(v uint64, dt Datatype) ([]uint16, error) {
	if dt.Signed() && dt.Bits() > 0 && v > uint64(math.MaxInt64)>>(64-dt.Bits()) {
		return nil, fmt.Errorf("%w: %d does not fit %s", ErrRange, v, dt)
	}
	return Encode(v, dt)
}

// ComposeU32 joins two consecutive registers, high word first.
func ComposeU32(high, low uint16) uint32 {
	return uint32(high)<<16 | uint32(low)
}

func mask(raw uint64, dt Datatype) uint64 {
	bits := dt.Bits()
	if bits == 0 || bits == 64 {
		return raw
	}
	return raw & (uint64(1)<<bits - 1)
}
