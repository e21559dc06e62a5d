// internal/writer/mqtt/sink.go
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/status"
	"github.com/tamzrod/energy-control/internal/telemetry"
)

// ClientIDPrefix prefixes the random client id.
const ClientIDPrefix = "energyctl-"

type Config struct {
	Broker   string // tcp://host:1883
	Topic    string // base topic
	Username string
	Password string
	QoS      byte
	Retained bool
	Timeout  time.Duration
	Logger   zerolog.Logger
}

// publisher is the part of paho.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Sink publishes telemetry as JSON.
//
//	<topic>/telemetry  reading + ordered tuple, successful samples only
//	<topic>/status     health snapshot, every sample
type Sink struct {
	client   publisher
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
	log      zerolog.Logger

	tracker *status.Tracker
}

// TelemetryPayload is the body published on <topic>/telemetry.
type TelemetryPayload struct {
	UnitID  uint8             `json:"unit_id"`
	At      time.Time         `json:"at"`
	Reading telemetry.Reading `json:"reading"`
	Tuple   []float64         `json:"tuple"`
}

// StatusPayload is the body published on <topic>/status.
type StatusPayload struct {
	UnitID uint8     `json:"unit_id"`
	At     time.Time `json:"at"`
	status.Snapshot
	Error string `json:"error,omitempty"`
}

// New connects to the broker.
func New(cfg Config) (*Sink, error) {
	if cfg.Broker == "" {
		return nil, errors.New("writer mqtt: broker required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	clientID := ClientIDPrefix + uuid.NewString()

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetWriteTimeout(cfg.Timeout)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		cfg.Logger.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
	}

	c := paho.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("writer mqtt: connect %s: timeout after %s", cfg.Broker, cfg.Timeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("writer mqtt: connect %s: %w", cfg.Broker, err)
	}

	cfg.Logger.Debug().
		Str("broker", cfg.Broker).
		Str("client_id", clientID).
		Msg("mqtt connected")

	return newSink(c, cfg), nil
}

func newSink(c publisher, cfg Config) *Sink {
	return &Sink{
		client:   c,
		topic:    strings.TrimSuffix(cfg.Topic, "/"),
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  cfg.Timeout,
		log:      cfg.Logger,
		tracker:  status.NewTracker(),
	}
}

func (s *Sink) Write(res telemetry.Result) error {
	at := res.At
	if at.IsZero() {
		at = time.Now()
	}

	// The status topic tracks the device even when telemetry fails to publish.
	var telemetryErr error
	if res.Err == nil {
		telemetryErr = s.publish("telemetry", TelemetryPayload{
			UnitID:  res.UnitID,
			At:      at,
			Reading: res.Reading,
			Tuple:   res.Reading.Tuple(),
		})
		s.tracker.SetChargingState(res.Reading.ChargingState.Code)
	}

	s.tracker.Observe(res.Err, at)
	sp := StatusPayload{
		UnitID:   res.UnitID,
		At:       at,
		Snapshot: s.tracker.Snapshot(),
	}
	if res.Err != nil {
		sp.Error = res.Err.Error()
	}
	return errors.Join(telemetryErr, s.publish("status", sp))
}

func (s *Sink) publish(sub string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("writer mqtt: marshal %s: %w", sub, err)
	}

	topic := s.topic + "/" + sub
	tok := s.client.Publish(topic, s.qos, s.retained, body)
	if !tok.WaitTimeout(s.timeout) {
		return fmt.Errorf("writer mqtt: publish %s: timeout after %s", topic, s.timeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("writer mqtt: publish %s: %w", topic, err)
	}

	s.log.Debug().Str("topic", topic).Int("bytes", len(body)).Msg("published")
	return nil
}

// Close disconnects, allowing in-flight publishes 250ms to complete.
func (s *Sink) Close() error {
	s.client.Disconnect(250)
	return nil
}
