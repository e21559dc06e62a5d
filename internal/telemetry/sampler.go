// internal/telemetry/sampler.go
package telemetry

import (
	"time"

	"github.com/tamzrod/energy-control/internal/wallbox"
)

// Source abstracts the device reads a sample needs.
type Source interface {
	UnitID() uint8
	PhaseCurrents() ([3]float64, error)
	PhaseVoltages() ([3]uint16, error)
	Power() (uint16, error)
	PCBTemperature() (float64, error)
	EnergySincePowerOn() (uint32, error)
	EnergySinceInstallation() (uint32, error)
	ChargingState() (wallbox.ChargingState, error)
}

// Sample performs exactly one read cycle.
// All-or-nothing: any failure aborts the cycle.
func Sample(src Source) Result {
	res := Result{
		UnitID: src.UnitID(),
		At:     time.Now(),
	}

	var (
		r   Reading
		err error
	)

	if r.Currents, err = src.PhaseCurrents(); err != nil {
		res.Err = err
		return res
	}
	if r.Voltages, err = src.PhaseVoltages(); err != nil {
		res.Err = err
		return res
	}
	if r.Power, err = src.Power(); err != nil {
		res.Err = err
		return res
	}
	if r.Temperature, err = src.PCBTemperature(); err != nil {
		res.Err = err
		return res
	}
	if r.EnergySincePowerOn, err = src.EnergySincePowerOn(); err != nil {
		res.Err = err
		return res
	}
	if r.EnergySinceInstallation, err = src.EnergySinceInstallation(); err != nil {
		res.Err = err
		return res
	}

	s, err := src.ChargingState()
	if err != nil {
		res.Err = err
		return res
	}
	r.ChargingState = ChargingState{
		Code:            uint16(s),
		IEC:             s.IEC(),
		Vehicle:         s.Vehicle(),
		Wallbox:         s.Wallbox(),
		ChargingAllowed: s.ChargingAllowed(),
	}

	// Commit only if all reads succeeded
	res.Reading = r
	return res
}
