// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	if cfg.Device.UnitID == 0 || cfg.Device.UnitID > 247 {
		return fmt.Errorf("device.unit_id %d out of range 1..247", cfg.Device.UnitID)
	}

	// device_name sanity (ASCII only)
	for i := 0; i < len(cfg.Device.Name); i++ {
		if cfg.Device.Name[i] > 0x7F {
			return fmt.Errorf("device.name must contain ASCII characters only")
		}
	}

	// ------------------------------------------------------------
	// TRANSPORT
	// ------------------------------------------------------------

	if cfg.Transport.Port == "" {
		return fmt.Errorf("transport.port is required")
	}
	switch cfg.Transport.Driver {
	case "", "rtu", "tcp", "simonvetter":
	default:
		return fmt.Errorf("transport.driver %q: expected rtu, tcp or simonvetter", cfg.Transport.Driver)
	}
	if cfg.Transport.TimeoutMs < 0 {
		return fmt.Errorf("transport.timeout_ms must not be negative")
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	switch cfg.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format %q: expected console or json", cfg.Log.Format)
	}

	// ------------------------------------------------------------
	// MQTT (opt-in)
	// ------------------------------------------------------------

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos %d out of range 0..2", cfg.MQTT.QoS)
		}
		if cfg.MQTT.TimeoutMs < 0 {
			return fmt.Errorf("mqtt.timeout_ms must not be negative")
		}
	}

	// ------------------------------------------------------------
	// REPLICA MEMORY GEOMETRY (opt-in)
	// ------------------------------------------------------------

	return validateReplica(cfg.Replica)
}

func validateReplica(r ReplicaConfig) error {
	if r.Endpoint == "" {
		if r.StatusSlot != nil {
			return fmt.Errorf("replica.status_slot is set but replica.endpoint is empty")
		}
		return nil
	}
	if r.TimeoutMs < 0 {
		return fmt.Errorf("replica.timeout_ms must not be negative")
	}

	type span struct {
		name  string
		start uint32
		end   uint32 // inclusive
	}

	data := span{
		name:  "reading",
		start: uint32(r.Address),
		end:   uint32(r.Address) + ReplicaReadingWords - 1,
	}
	spans := []span{data}

	if r.StatusSlot != nil {
		start := uint32(*r.StatusSlot) * StatusBlockWords
		spans = append(spans, span{
			name:  "status",
			start: start,
			end:   start + StatusBlockWords - 1,
		})
	}

	for _, s := range spans {
		if s.end > 0xFFFF {
			return fmt.Errorf("replica %s block %d-%d exceeds the register space", s.name, s.start, s.end)
		}
	}

	if len(spans) == 2 {
		a, b := spans[0], spans[1]
		// overlap check (inclusive)
		if !(a.end < b.start || a.start > b.end) {
			return fmt.Errorf(
				"replica memory overlap: %s range=%d-%d overlaps with %s range=%d-%d",
				a.name, a.start, a.end,
				b.name, b.start, b.end,
			)
		}
	}

	return nil
}
