// internal/exporter/collector.go
package exporter

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/status"
	"github.com/tamzrod/energy-control/internal/telemetry"
)

const namespace = "energyctl"

// Sink receives every sample taken by the collector.
type Sink interface {
	Write(res telemetry.Result) error
}

var phases = [3]string{"1", "2", "3"}

// Collector samples the wallbox on every scrape.
// No background polling: no scrape, no bus traffic.
type Collector struct {
	src  telemetry.Source
	sink Sink
	log  zerolog.Logger

	mu      sync.Mutex
	tracker *status.Tracker
	last    telemetry.Result

	up              *prometheus.Desc
	health          *prometheus.Desc
	lastErrorCode   *prometheus.Desc
	current         *prometheus.Desc
	voltage         *prometheus.Desc
	power           *prometheus.Desc
	temperature     *prometheus.Desc
	energyPowerOn   *prometheus.Desc
	energyInstalled *prometheus.Desc
	chargingState   *prometheus.Desc
	chargingAllowed *prometheus.Desc
}

// NewCollector builds a collector over src. sink may be nil.
func NewCollector(src telemetry.Source, sink Sink, log zerolog.Logger) *Collector {
	unit := prometheus.Labels{"unit_id": strconv.Itoa(int(src.UnitID()))}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, unit)
	}

	return &Collector{
		src:     src,
		sink:    sink,
		log:     log,
		tracker: status.NewTracker(),

		up:              desc("up", "1 if the last sample succeeded."),
		health:          desc("health", "Device health code (0 unknown, 1 ok, 2 error)."),
		lastErrorCode:   desc("last_error_code", "Code of the last failed exchange, 0 when healthy."),
		current:         desc("phase_current_amperes", "RMS current per phase.", "phase"),
		voltage:         desc("phase_voltage_volts", "RMS voltage per phase.", "phase"),
		power:           desc("power_va", "Charging power."),
		temperature:     desc("pcb_temperature_celsius", "PCB temperature."),
		energyPowerOn:   desc("energy_since_power_on_vah", "Energy since last power on."),
		energyInstalled: desc("energy_since_installation_vah_total", "Energy since installation."),
		chargingState:   desc("charging_state", "Charging state code (2..11).", "iec"),
		chargingAllowed: desc("charging_allowed", "1 if the charging state allows charging."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.up, c.health, c.lastErrorCode,
		c.current, c.voltage, c.power, c.temperature,
		c.energyPowerOn, c.energyInstalled,
		c.chargingState, c.chargingAllowed,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	res, snap := c.Sample()

	up := 0.0
	if res.Err == nil {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(c.health, prometheus.GaugeValue, float64(snap.Health))
	ch <- prometheus.MustNewConstMetric(c.lastErrorCode, prometheus.GaugeValue, float64(snap.LastErrorCode))

	if res.Err != nil {
		return
	}

	r := res.Reading
	for i, p := range phases {
		ch <- prometheus.MustNewConstMetric(c.current, prometheus.GaugeValue, r.Currents[i], p)
		ch <- prometheus.MustNewConstMetric(c.voltage, prometheus.GaugeValue, float64(r.Voltages[i]), p)
	}
	ch <- prometheus.MustNewConstMetric(c.power, prometheus.GaugeValue, float64(r.Power))
	ch <- prometheus.MustNewConstMetric(c.temperature, prometheus.GaugeValue, r.Temperature)
	ch <- prometheus.MustNewConstMetric(c.energyPowerOn, prometheus.GaugeValue, float64(r.EnergySincePowerOn))
	ch <- prometheus.MustNewConstMetric(c.energyInstalled, prometheus.CounterValue, float64(r.EnergySinceInstallation))
	ch <- prometheus.MustNewConstMetric(c.chargingState, prometheus.GaugeValue, float64(r.ChargingState.Code), r.ChargingState.IEC)

	allowed := 0.0
	if r.ChargingState.ChargingAllowed {
		allowed = 1
	}
	ch <- prometheus.MustNewConstMetric(c.chargingAllowed, prometheus.GaugeValue, allowed)
}

// Sample takes one sample now, records it and forwards it to the sink.
func (c *Collector) Sample() (telemetry.Result, status.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := telemetry.Sample(c.src)
	if res.Err != nil {
		c.log.Warn().Err(res.Err).Msg("sample failed")
	} else {
		c.tracker.SetChargingState(res.Reading.ChargingState.Code)
	}
	c.tracker.Observe(res.Err, res.At)
	c.last = res

	if c.sink != nil {
		if err := c.sink.Write(res); err != nil {
			c.log.Error().Err(err).Msg("sink write failed")
		}
	}

	return res, c.tracker.Snapshot()
}

// Last returns the most recent sample without touching the bus.
func (c *Collector) Last() (telemetry.Result, status.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.tracker.Snapshot()
}
