// internal/writer/encode.go
package writer

import (
	"fmt"
	"math"

	"github.com/tamzrod/energy-control/internal/register"
	"github.com/tamzrod/energy-control/internal/telemetry"
)

// Reading block layout, relative to ReplicaPlan.Address.
const (
	SlotCurrents           = 0  // 3 x U16, 0.1 A
	SlotVoltages           = 3  // 3 x U16, V
	SlotPower              = 6  // U16, VA
	SlotTemperature        = 7  // S16, 0.1 °C
	SlotEnergyPowerOn      = 8  // U32, VAh
	SlotEnergyInstallation = 10 // U32, VAh
	SlotChargingState      = 12 // U16

	ReadingWords = 13
)

// EncodeReading converts a reading back into device-scaled registers.
func EncodeReading(r telemetry.Reading) ([]uint16, error) {
	regs := make([]uint16, 0, ReadingWords)

	put := func(field string, words []uint16, err error) error {
		if err != nil {
			return fmt.Errorf("writer: encode %s: %w", field, err)
		}
		regs = append(regs, words...)
		return nil
	}

	for i, c := range r.Currents {
		w, err := register.EncodeInt(int64(math.Round(c*10)), register.U16)
		if err := put(fmt.Sprintf("current[%d]", i), w, err); err != nil {
			return nil, err
		}
	}
	for i, v := range r.Voltages {
		w, err := register.EncodeUint(uint64(v), register.U16)
		if err := put(fmt.Sprintf("voltage[%d]", i), w, err); err != nil {
			return nil, err
		}
	}

	w, err := register.EncodeUint(uint64(r.Power), register.U16)
	if err := put("power", w, err); err != nil {
		return nil, err
	}
	w, err = register.EncodeInt(int64(math.Round(r.Temperature*10)), register.S16)
	if err := put("temperature", w, err); err != nil {
		return nil, err
	}
	w, err = register.EncodeUint(uint64(r.EnergySincePowerOn), register.U32)
	if err := put("energy_since_power_on", w, err); err != nil {
		return nil, err
	}
	w, err = register.EncodeUint(uint64(r.EnergySinceInstallation), register.U32)
	if err := put("energy_since_installation", w, err); err != nil {
		return nil, err
	}
	w, err = register.EncodeUint(uint64(r.ChargingState.Code), register.U16)
	if err := put("charging_state", w, err); err != nil {
		return nil, err
	}

	return regs, nil
}
