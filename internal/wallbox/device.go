// internal/wallbox/device.go
package wallbox

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/register"
	"github.com/tamzrod/energy-control/internal/response"
)

// Transport is the exchange capability the device layer needs.
// One call is one request/response on the bus.
type Transport interface {
	ReadRegisters(unitID uint8, space register.Space, addr, qty uint16) ([]uint16, error)
	WriteRegister(unitID uint8, addr, value uint16) error
	Close() error
}

// Device is one wallbox on the bus.
// All operations on a Device are serialised; a read-compare-write
// sequence runs as one unit.
type Device struct {
	mu     sync.Mutex
	tr     Transport
	unitID uint8
	log    zerolog.Logger
	closed bool
}

// Option configures a Device.
type Option func(*Device)

// WithLogger injects the event sink. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Device) {
		d.log = l
	}
}

// New binds a transport to one unit id. The Device owns the transport
// and releases it on Close.
func New(tr Transport, unitID uint8, opts ...Option) (*Device, error) {
	if tr == nil {
		return nil, errors.New("wallbox: transport required")
	}
	// 0 is broadcast (no response), 248..255 are reserved.
	if unitID == 0 || unitID > 247 {
		return nil, fmt.Errorf("wallbox: unit id %d out of range 1..247", unitID)
	}

	d := &Device{
		tr:     tr,
		unitID: unitID,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Uint8("unit_id", unitID).Logger()
	return d, nil
}

// UnitID returns the bus address.
func (d *Device) UnitID() uint8 { return d.unitID }

// Close releases the transport. Further calls are no-ops.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.log.Debug().Msg("closing transport")
	return d.tr.Close()
}

// ---- exchange helpers (caller holds d.mu) ----

func (d *Device) read(op string, space register.Space, addr uint16, dt register.Datatype, count int) ([]register.Value, error) {
	if d.closed {
		return nil, &PreconditionError{Op: op, Msg: "device closed", Err: ErrClosed}
	}
	qty, err := register.Length(dt, count)
	if err != nil {
		return nil, &PreconditionError{Op: op, Msg: "invalid request geometry", Err: err}
	}

	words, err := d.tr.ReadRegisters(d.unitID, space, addr, qty)
	out := response.Classify(words, err)
	if out.Kind != response.Success {
		d.log.Debug().
			Str("op", op).
			Stringer("space", space).
			Uint16("address", addr).
			Stringer("outcome", out.Kind).
			Err(out.Err()).
			Msg("read failed")
		return nil, fmt.Errorf("%s: %w", op, out.Err())
	}

	vals, err := register.Decode(out.Words, dt, count)
	if err != nil {
		// Short or long payload: the frame does not match the request.
		return nil, fmt.Errorf("%s: %w", op, &response.TransportError{Err: err})
	}

	d.log.Debug().
		Str("op", op).
		Stringer("space", space).
		Uint16("address", addr).
		Uints16("words", out.Words).
		Msg("read")
	return vals, nil
}

func (d *Device) readInput(op string, addr uint16, dt register.Datatype, count int) ([]register.Value, error) {
	return d.read(op, register.Input, addr, dt, count)
}

func (d *Device) readHolding(op string, addr uint16, dt register.Datatype, count int) ([]register.Value, error) {
	return d.read(op, register.Holding, addr, dt, count)
}

// readU16 reads one unsigned word.
func (d *Device) readU16(op string, space register.Space, addr uint16) (uint16, error) {
	vals, err := d.read(op, space, addr, register.U16, 1)
	if err != nil {
		return 0, err
	}
	return uint16(vals[0].Uint()), nil
}

// write issues a single-register write (FC 6).
func (d *Device) write(op string, addr uint16, dt register.Datatype, raw uint64) error {
	if d.closed {
		return &PreconditionError{Op: op, Msg: "device closed", Err: ErrClosed}
	}
	words, err := register.Encode(raw, dt)
	if err != nil {
		return &PreconditionError{Op: op, Msg: "value does not fit register", Err: err}
	}
	if len(words) != 1 {
		return precondition(op, "%s needs %d registers; only single-register writes are supported", dt, len(words))
	}

	out := response.Classify(nil, d.tr.WriteRegister(d.unitID, addr, words[0]))
	if out.Kind != response.Success {
		d.log.Warn().
			Str("op", op).
			Uint16("address", addr).
			Uint16("value", words[0]).
			Stringer("outcome", out.Kind).
			Err(out.Err()).
			Msg("write failed")
		return fmt.Errorf("%s: %w", op, out.Err())
	}

	d.log.Info().
		Str("op", op).
		Uint16("address", addr).
		Uint16("value", words[0]).
		Msg("register written")
	return nil
}
