// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/energy-control/internal/config"
	wmodbus "github.com/tamzrod/energy-control/internal/writer/modbus"
	wmqtt "github.com/tamzrod/energy-control/internal/writer/mqtt"
)

// BuildReplicaPlan converts the replica config into a ReplicaPlan.
// Assumes config has already passed validation.
func BuildReplicaPlan(c cfg.Config) (ReplicaPlan, error) {
	if c.Replica.Endpoint == "" {
		return ReplicaPlan{}, errors.New("writer: replica.endpoint required")
	}

	plan := ReplicaPlan{
		Endpoint: c.Replica.Endpoint,
		UnitID:   c.Replica.UnitID,
		Address:  c.Replica.Address,
	}
	if c.Replica.StatusSlot != nil {
		plan.Status = &StatusPlan{
			BaseSlot:   *c.Replica.StatusSlot,
			DeviceName: c.Device.Name,
		}
	}

	return plan, nil
}

// BuildSinks opens every configured sink.
// On failure, sinks opened so far are closed.
func BuildSinks(c cfg.Config, log zerolog.Logger) (Fanout, error) {
	var sinks Fanout
	fail := func(err error) (Fanout, error) {
		_ = sinks.Close()
		return nil, err
	}

	if c.MQTT.Broker != "" {
		s, err := wmqtt.New(wmqtt.Config{
			Broker:   c.MQTT.Broker,
			Topic:    c.MQTT.Topic,
			Username: c.MQTT.Username,
			Password: c.MQTT.Password,
			QoS:      c.MQTT.QoS,
			Retained: c.MQTT.Retained,
			Timeout:  time.Duration(c.MQTT.TimeoutMs) * time.Millisecond,
			Logger:   log.With().Str("sink", "mqtt").Logger(),
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if c.Replica.Endpoint != "" {
		plan, err := BuildReplicaPlan(c)
		if err != nil {
			return fail(err)
		}

		l := log.With().Str("sink", "replica").Logger()
		cli, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: plan.Endpoint,
			Timeout:  time.Duration(c.Replica.TimeoutMs) * time.Millisecond,
			Logger:   l,
		})
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, NewReplica(plan, cli, l))
	}

	return sinks, nil
}
