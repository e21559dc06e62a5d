// internal/writer/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
)

// MaxWriteRegisters is the FC16 per-request register limit.
const MaxWriteRegisters = 123

// EndpointClient is a single TCP connection to one replica endpoint.
// It serializes requests because it mutates SlaveId per write.
type EndpointClient struct {
	mu       sync.Mutex
	endpoint string
	handler  *modbus.TCPClientHandler
	client   modbus.Client
	log      zerolog.Logger
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
	Logger   zerolog.Logger
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("writer modbus: connect %s: %w", cfg.Endpoint, err)
	}
	cfg.Logger.Debug().Str("endpoint", cfg.Endpoint).Msg("replica connected")

	return &EndpointClient{
		endpoint: cfg.Endpoint,
		handler:  h,
		client:   modbus.NewClient(h),
		log:      cfg.Logger,
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes regs with FC16 starting at addr.
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if len(regs) == 0 || len(regs) > MaxWriteRegisters {
		return fmt.Errorf("writer modbus: invalid register count %d", len(regs))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	if _, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs)); err != nil {
		return fmt.Errorf("writer modbus: %s unit=%d addr=%d: %w", c.endpoint, unitID, addr, err)
	}

	c.log.Trace().
		Uint8("unit_id", unitID).
		Uint16("address", addr).
		Int("quantity", len(regs)).
		Msg("registers written")
	return nil
}

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[2*i:], r)
	}
	return out
}
