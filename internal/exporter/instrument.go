// internal/exporter/instrument.go
package exporter

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/energy-control/internal/register"
	"github.com/tamzrod/energy-control/internal/response"
	"github.com/tamzrod/energy-control/internal/wallbox"
)

// Instrumented is a wallbox.Transport that counts every exchange
// by register space and classified outcome.
type Instrumented struct {
	next wallbox.Transport

	exchanges *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// Instrument wraps next and registers its metrics with reg.
func Instrument(next wallbox.Transport, reg prometheus.Registerer) (*Instrumented, error) {
	i := &Instrumented{
		next: next,
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Modbus exchanges by register space and outcome.",
		}, []string{"space", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Modbus exchange round trip time.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"space"}),
	}

	for _, c := range []prometheus.Collector{i.exchanges, i.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Instrumented) ReadRegisters(unitID uint8, space register.Space, addr, qty uint16) ([]uint16, error) {
	start := time.Now()
	words, err := i.next.ReadRegisters(unitID, space, addr, qty)
	out := response.Classify(words, err)
	if out.Kind == response.Success && len(words) != int(qty) {
		// The device layer rejects a mis-sized frame as a transport error.
		out = response.Outcome{
			Kind:  response.Transport,
			Cause: &response.TransportError{Err: fmt.Errorf("got %d registers, want %d", len(words), qty)},
		}
	}
	i.observe(space, start, out)
	return words, err
}

func (i *Instrumented) WriteRegister(unitID uint8, addr, value uint16) error {
	start := time.Now()
	err := i.next.WriteRegister(unitID, addr, value)
	i.observe(register.Holding, start, response.Classify(nil, err))
	return err
}

func (i *Instrumented) Close() error { return i.next.Close() }

func (i *Instrumented) observe(space register.Space, start time.Time, o response.Outcome) {
	i.exchanges.WithLabelValues(space.String(), o.Kind.String()).Inc()
	i.duration.WithLabelValues(space.String()).Observe(time.Since(start).Seconds())
}
