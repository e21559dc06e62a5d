package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPath, filepath.Join(dir, "missing.env"))

	p := writeFile(t, dir, "cfg.yaml", `
device:
  name: garage
  unit_id: 2
transport:
  driver: simonvetter
  port: rtuovertcp://10.0.0.7:502
  timeout_ms: 500
mqtt:
  broker: tcp://broker:1883
  qos: 1
replica:
  endpoint: 127.0.0.1:5020
  status_slot: 1
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Device.UnitID != 2 || cfg.Transport.Driver != "simonvetter" || cfg.Transport.TimeoutMs != 500 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Replica.StatusSlot == nil || *cfg.Replica.StatusSlot != 1 {
		t.Fatalf("status_slot not decoded")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPath, filepath.Join(dir, "missing.env"))

	p := writeFile(t, dir, "cfg.yaml", "transport:\n  baud: 9600\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoad_EnvFileOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "ENERGYCTL_PORT=/dev/ttyAMA0\nENERGYCTL_UNIT_ID=5\nENERGYCTL_MQTT_BROKER=tcp://from-file:1883\n")
	t.Setenv(EnvPath, envFile)
	// process environment wins over the file
	t.Setenv(EnvMQTTBroker, "tcp://from-env:1883")

	p := writeFile(t, dir, "cfg.yaml", "device:\n  unit_id: 1\ntransport:\n  port: /dev/ttyUSB0\n")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if cfg.Transport.Port != "/dev/ttyAMA0" || cfg.Device.UnitID != 5 {
		t.Fatalf(".env overrides not applied: %+v", cfg)
	}
	if cfg.MQTT.Broker != "tcp://from-env:1883" {
		t.Fatalf("process env must win, got %q", cfg.MQTT.Broker)
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == EnvTimeoutMs {
			return "soon", true
		}
		return "", false
	}
	if err := applyEnv(&Config{}, lookup); err == nil {
		t.Fatalf("expected parse error")
	}
}
