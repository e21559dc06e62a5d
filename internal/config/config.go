// internal/config/config.go
package config

type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Exporter  ExporterConfig  `yaml:"exporter"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Replica   ReplicaConfig   `yaml:"replica"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Name   string `yaml:"name"`
	UnitID uint8  `yaml:"unit_id"`
}

// ---- TRANSPORT ----
// Line settings (19200 8E1) are fixed by the device and not configurable.

type TransportConfig struct {
	Driver    string `yaml:"driver"` // rtu | tcp | simonvetter
	Port      string `yaml:"port"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Trace     bool   `yaml:"trace"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// ---- EXPORTER ----

type ExporterConfig struct {
	Listen string `yaml:"listen"`
}

// ---- MQTT SINK (optional) ----

type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	Topic     string `yaml:"topic"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	QoS       byte   `yaml:"qos"`
	Retained  bool   `yaml:"retained"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- MODBUS TCP REPLICA SINK (optional) ----

type ReplicaConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot"`
}

// Replica memory geometry.
const (
	ReplicaReadingWords = 13
	StatusBlockWords    = 20
)
