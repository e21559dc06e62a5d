// internal/transport/goburrow.go
package transport

import (
	"fmt"
	stdlog "log"
	"sync"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/register"
)

type connector interface {
	Connect() error
	Close() error
}

// Goburrow is a Client on top of github.com/goburrow/modbus.
// It serialises requests because it mutates the slave id per call.
type Goburrow struct {
	mu       sync.Mutex
	handler  connector
	setSlave func(uint8)
	client   modbus.Client
	log      zerolog.Logger
}

// NewSerial opens an RTU link on a local serial port (19200 8E1).
func NewSerial(cfg Config) (*Goburrow, error) {
	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = BaudRate
	h.DataBits = DataBits
	h.Parity = Parity
	h.StopBits = StopBits
	h.Timeout = cfg.Timeout
	if cfg.Trace {
		h.Logger = traceLogger(cfg.Logger, "rtu")
	}

	return open(cfg, h, func(id uint8) { h.SlaveId = id }, modbus.NewClient(h))
}

// NewTCP opens a Modbus TCP link to a serial gateway at host:port.
func NewTCP(cfg Config) (*Goburrow, error) {
	h := modbus.NewTCPClientHandler(cfg.Port)
	h.Timeout = cfg.Timeout
	if cfg.Trace {
		h.Logger = traceLogger(cfg.Logger, "tcp")
	}

	return open(cfg, h, func(id uint8) { h.SlaveId = id }, modbus.NewClient(h))
}

func open(cfg Config, h connector, setSlave func(uint8), c modbus.Client) (*Goburrow, error) {
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("transport: connect %s: %w", cfg.Port, err)
	}
	cfg.Logger.Debug().
		Str("driver", cfg.Driver).
		Str("port", cfg.Port).
		Dur("timeout", cfg.Timeout).
		Msg("link open")

	return &Goburrow{
		handler:  h,
		setSlave: setSlave,
		client:   c,
		log:      cfg.Logger,
	}, nil
}

// Close releases the serial port or socket.
func (g *Goburrow) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log.Debug().Msg("link closed")
	return g.handler.Close()
}

func (g *Goburrow) ReadRegisters(unitID uint8, space register.Space, addr, qty uint16) ([]uint16, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.setSlave(unitID)

	var (
		data []byte
		err  error
	)
	switch space {
	case register.Input:
		data, err = g.client.ReadInputRegisters(addr, qty)
	case register.Holding:
		data, err = g.client.ReadHoldingRegisters(addr, qty)
	default:
		return nil, fmt.Errorf("transport: unsupported register space %s", space)
	}
	if err != nil {
		return nil, err
	}
	return unpackRegisters(data)
}

func (g *Goburrow) WriteRegister(unitID uint8, addr, value uint16) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.setSlave(unitID)

	_, err := g.client.WriteSingleRegister(addr, value)
	return err
}

// traceLogger bridges goburrow's *log.Logger frame trace into zerolog.
func traceLogger(l zerolog.Logger, driver string) *stdlog.Logger {
	return stdlog.New(l.With().Str("driver", driver).Logger(), "", 0)
}
