// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides. Process environment wins over the .env file.
const (
	EnvPath         = "ENERGYCTL_ENV_PATH"
	EnvPort         = "ENERGYCTL_PORT"
	EnvUnitID       = "ENERGYCTL_UNIT_ID"
	EnvTimeoutMs    = "ENERGYCTL_TIMEOUT_MS"
	EnvDriver       = "ENERGYCTL_DRIVER"
	EnvMQTTBroker   = "ENERGYCTL_MQTT_BROKER"
	EnvMQTTUsername = "ENERGYCTL_MQTT_USERNAME"
	EnvMQTTPassword = "ENERGYCTL_MQTT_PASSWORD"
)

const defaultEnvPath = ".env"

// Load reads the YAML file at path and applies environment overrides.
// An empty path yields a config built from the environment alone.
// The result still needs Validate and Normalize.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	env, err := readEnv()
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readEnv merges the .env file under the process environment.
// A missing .env file is not an error.
func readEnv() (func(string) (string, bool), error) {
	envPath := defaultEnvPath
	if v := os.Getenv(EnvPath); v != "" {
		envPath = v
	}

	file, err := godotenv.Read(envPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envPath, err)
		}
		file = map[string]string{}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvPort, &cfg.Transport.Port)
	str(EnvDriver, &cfg.Transport.Driver)
	str(EnvMQTTBroker, &cfg.MQTT.Broker)
	str(EnvMQTTUsername, &cfg.MQTT.Username)
	str(EnvMQTTPassword, &cfg.MQTT.Password)

	if v, ok := lookup(EnvUnitID); ok && v != "" {
		id, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvUnitID, v, err)
		}
		cfg.Device.UnitID = uint8(id)
	}
	if v, ok := lookup(EnvTimeoutMs); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvTimeoutMs, v, err)
		}
		cfg.Transport.TimeoutMs = ms
	}
	return nil
}
