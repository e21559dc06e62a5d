// internal/telemetry/types.go
package telemetry

import "time"

// Reading is one decoded, unit-converted telemetry set.
type Reading struct {
	Currents    [3]float64 `json:"currents_a"`
	Voltages    [3]uint16  `json:"voltages_v"`
	Power       uint16     `json:"power_va"`
	Temperature float64    `json:"pcb_temperature_c"`

	// Counters in VAh.
	EnergySincePowerOn      uint32 `json:"energy_since_power_on_vah"`
	EnergySinceInstallation uint32 `json:"energy_since_installation_vah"`

	ChargingState ChargingState `json:"charging_state"`
}

// ChargingState is the flattened view of register 5.
type ChargingState struct {
	Code            uint16 `json:"code"`
	IEC             string `json:"iec"`
	Vehicle         string `json:"vehicle"`
	Wallbox         string `json:"wallbox"`
	ChargingAllowed bool   `json:"charging_allowed"`
}

// TupleFields names the positions of Reading.Tuple, with units.
var TupleFields = []string{
	"i1_a", "i2_a", "i3_a",
	"u1_v", "u2_v", "u3_v",
	"power_va",
	"pcb_temperature_c",
	"energy_since_power_on_kvah",
	"energy_since_installation_kvah",
}

// Tuple is the flat ordered record handed to storage consumers:
// I1..I3 [A], U1..U3 [V], P [VA], T [°C], E power-on [kVAh], E installation [kVAh].
// Order and units are stable.
func (r Reading) Tuple() []float64 {
	return []float64{
		r.Currents[0], r.Currents[1], r.Currents[2],
		float64(r.Voltages[0]), float64(r.Voltages[1]), float64(r.Voltages[2]),
		float64(r.Power),
		r.Temperature,
		float64(r.EnergySincePowerOn) / 1000,
		float64(r.EnergySinceInstallation) / 1000,
	}
}

// Result is a snapshot produced by one sample.
type Result struct {
	UnitID uint8
	At     time.Time

	Reading Reading
	Err     error // non-nil means the sample failed and Reading is empty
}
