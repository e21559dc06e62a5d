// internal/transport/transport.go
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/register"
)

// Serial line settings of the wallbox. Device constants, not configuration.
const (
	BaudRate = 19200
	DataBits = 8
	Parity   = "E"
	StopBits = 1
)

// Drivers.
const (
	DriverRTU         = "rtu"         // goburrow RTU over a local serial port
	DriverTCP         = "tcp"         // goburrow Modbus TCP to an RS485 gateway
	DriverSimonvetter = "simonvetter" // simonvetter, rtu:// or rtuovertcp:// URL
)

// Client is one open link to the bus.
type Client interface {
	ReadRegisters(unitID uint8, space register.Space, addr, qty uint16) ([]uint16, error)
	WriteRegister(unitID uint8, addr, value uint16) error
	Close() error
}

// Config is minimal transport config.
type Config struct {
	Driver  string
	Port    string // serial device, host:port, or URL
	Timeout time.Duration
	Trace   bool // log raw frames (goburrow only)
	Logger  zerolog.Logger
}

// Build opens a client for cfg.Driver. The link is open on return;
// the caller owns Close.
func Build(cfg Config) (Client, error) {
	if cfg.Port == "" {
		return nil, errors.New("transport: port required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}

	switch cfg.Driver {
	case "", DriverRTU:
		return NewSerial(cfg)
	case DriverTCP:
		return NewTCP(cfg)
	case DriverSimonvetter:
		return NewSimon(cfg)
	default:
		return nil, fmt.Errorf("transport: unknown driver %q", cfg.Driver)
	}
}

// unpackRegisters converts a big-endian byte payload into words.
func unpackRegisters(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("transport: odd payload length %d", len(data))
	}
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out, nil
}
