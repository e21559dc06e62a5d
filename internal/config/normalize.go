// internal/config/normalize.go
package config

import "fmt"

// Defaults applied by Normalize.
const (
	DefaultDriver       = "rtu"
	DefaultTimeoutMs    = 1000
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultListen       = ":9105"
	DefaultMQTTTimeout  = 10000
	DefaultReplicaUnit  = 1
	deviceNameMaxLength = 16
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Normalize device_name:
	// - ASCII already validated
	// - Truncate to max 16 characters
	if cfg.Device.Name == "" {
		cfg.Device.Name = fmt.Sprintf("wallbox-%d", cfg.Device.UnitID)
	}
	if len(cfg.Device.Name) > deviceNameMaxLength {
		cfg.Device.Name = cfg.Device.Name[:deviceNameMaxLength]
	}

	if cfg.Transport.Driver == "" {
		cfg.Transport.Driver = DefaultDriver
	}
	if cfg.Transport.TimeoutMs == 0 {
		cfg.Transport.TimeoutMs = DefaultTimeoutMs
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Exporter.Listen == "" {
		cfg.Exporter.Listen = DefaultListen
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "energyctl/" + cfg.Device.Name
	}
	if cfg.MQTT.TimeoutMs == 0 {
		cfg.MQTT.TimeoutMs = DefaultMQTTTimeout
	}

	if cfg.Replica.UnitID == 0 {
		cfg.Replica.UnitID = DefaultReplicaUnit
	}
	if cfg.Replica.TimeoutMs == 0 {
		cfg.Replica.TimeoutMs = cfg.Transport.TimeoutMs
	}
}
