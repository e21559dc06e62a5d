// internal/transport/simonvetter.go
package transport

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/simonvetter/modbus"

	"github.com/tamzrod/energy-control/internal/register"
)

// Simon is a Client on top of github.com/simonvetter/modbus.
type Simon struct {
	mu  sync.Mutex
	mb  *modbus.ModbusClient
	log zerolog.Logger
}

// NewSimon opens the link. A bare port path becomes rtu://<path>;
// rtuovertcp:// and tcp:// URLs pass through.
func NewSimon(cfg Config) (*Simon, error) {
	url := simonURL(cfg.Port)

	mb, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      url,
		Speed:    BaudRate,
		DataBits: DataBits,
		Parity:   modbus.PARITY_EVEN,
		StopBits: StopBits,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: configure %s: %w", url, err)
	}
	if err := mb.Open(); err != nil {
		return nil, fmt.Errorf("transport: connect %s: %w", url, err)
	}

	cfg.Logger.Debug().
		Str("driver", DriverSimonvetter).
		Str("url", url).
		Dur("timeout", cfg.Timeout).
		Msg("link open")

	return &Simon{mb: mb, log: cfg.Logger}, nil
}

func simonURL(port string) string {
	if strings.Contains(port, "://") {
		return port
	}
	return "rtu://" + port
}

func (s *Simon) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Debug().Msg("link closed")
	return s.mb.Close()
}

func (s *Simon) ReadRegisters(unitID uint8, space register.Space, addr, qty uint16) ([]uint16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rt modbus.RegType
	switch space {
	case register.Input:
		rt = modbus.INPUT_REGISTER
	case register.Holding:
		rt = modbus.HOLDING_REGISTER
	default:
		return nil, fmt.Errorf("transport: unsupported register space %s", space)
	}

	s.mb.SetUnitId(unitID)
	return s.mb.ReadRegisters(addr, qty, rt)
}

func (s *Simon) WriteRegister(unitID uint8, addr, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mb.SetUnitId(unitID)
	return s.mb.WriteRegister(addr, value)
}
