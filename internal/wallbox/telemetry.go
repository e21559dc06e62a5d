// internal/wallbox/telemetry.go
package wallbox

import (
	"fmt"
	"strings"

	"github.com/tamzrod/energy-control/internal/register"
)

// Info bundles the static identification registers.
type Info struct {
	LayoutVersion    string
	SoftwareRevision uint16
	HWMaxCurrent     uint16 // A
	HWMinCurrent     uint16 // A
}

// RegisterLayoutVersion renders register 4 as "v" + dot-joined hex digits,
// e.g. 0x108 -> "v1.0.8".
func (d *Device) RegisterLayoutVersion() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.layoutVersion()
}

func (d *Device) layoutVersion() (string, error) {
	raw, err := d.readU16("get_register_layout_version", register.Input, AddrLayoutVersion)
	if err != nil {
		return "", err
	}
	return formatLayoutVersion(raw), nil
}

func formatLayoutVersion(raw uint16) string {
	digits := fmt.Sprintf("%x", raw)
	return "v" + strings.Join(strings.Split(digits, ""), ".")
}

// ChargingState decodes register 5. Codes outside 2..11 fail with DecodeError.
func (d *Device) ChargingState() (ChargingState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "get_charging_state"
	raw, err := d.readU16(op, register.Input, AddrChargingState)
	if err != nil {
		return 0, err
	}
	s, ok := ParseChargingState(raw)
	if !ok {
		return 0, &DecodeError{Op: op, Address: AddrChargingState, Raw: uint64(raw), Msg: "charging state outside 2..11"}
	}
	return s, nil
}

// PhaseCurrents returns the RMS currents L1..L3 in amperes.
func (d *Device) PhaseCurrents() ([3]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out [3]float64
	vals, err := d.readInput("get_currents_rms", AddrPhaseCurrents, register.U16, 3)
	if err != nil {
		return out, err
	}
	for i, v := range vals {
		out[i] = deci(int64(v.Uint()))
	}
	return out, nil
}

// PCBTemperature returns the board temperature in °C.
func (d *Device) PCBTemperature() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vals, err := d.readInput("get_pcb_temperature", AddrPCBTemperature, register.S16, 1)
	if err != nil {
		return 0, err
	}
	return deci(vals[0].Int()), nil
}

// PhaseVoltages returns the RMS voltages L1-N..L3-N in volts.
func (d *Device) PhaseVoltages() ([3]uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out [3]uint16
	vals, err := d.readInput("get_voltages_rms", AddrPhaseVoltages, register.U16, 3)
	if err != nil {
		return out, err
	}
	for i, v := range vals {
		out[i] = uint16(v.Uint())
	}
	return out, nil
}

// ExternLockState reads the external lock input (register 13).
func (d *Device) ExternLockState() (LockState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "get_extern_lock_state"
	raw, err := d.readU16(op, register.Input, AddrExternLockState)
	if err != nil {
		return 0, err
	}
	l := LockState(raw)
	if !l.valid() {
		return 0, &DecodeError{Op: op, Address: AddrExternLockState, Raw: uint64(raw), Msg: "lock state must be 0 or 1"}
	}
	return l, nil
}

// Power returns the sum over all phases in VA.
func (d *Device) Power() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readU16("get_power", register.Input, AddrPower)
}

// EnergySincePowerOn returns the counter in VAh.
func (d *Device) EnergySincePowerOn() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.energy("get_energy_since_power_on", AddrEnergySincePowerOn)
}

// EnergySinceInstallation returns the counter in VAh.
func (d *Device) EnergySinceInstallation() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.energy("get_energy_since_installation", AddrEnergySinceInstallation)
}

// energy reads two U16 registers, high word first.
func (d *Device) energy(op string, addr uint16) (uint32, error) {
	vals, err := d.readInput(op, addr, register.U16, 2)
	if err != nil {
		return 0, err
	}
	return register.ComposeU32(uint16(vals[0].Uint()), uint16(vals[1].Uint())), nil
}

// HWMaxCurrent is the hardware switch setting in amperes.
func (d *Device) HWMaxCurrent() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readU16("get_hw_config_max_current", register.Input, AddrHWMaxCurrent)
}

// HWMinCurrent is the hardware switch setting in amperes.
func (d *Device) HWMinCurrent() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readU16("get_hw_config_min_current", register.Input, AddrHWMinCurrent)
}

// ApplicationSoftwareRevision returns register 203 verbatim.
func (d *Device) ApplicationSoftwareRevision() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readU16("get_application_software_revision", register.Input, AddrSoftwareRevision)
}

// Info reads the identification registers. It stops at the first failure.
func (d *Device) Info() (Info, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		info Info
		err  error
	)
	if info.LayoutVersion, err = d.layoutVersion(); err != nil {
		return Info{}, err
	}
	if info.SoftwareRevision, err = d.readU16("get_application_software_revision", register.Input, AddrSoftwareRevision); err != nil {
		return Info{}, err
	}
	if info.HWMaxCurrent, err = d.readU16("get_hw_config_max_current", register.Input, AddrHWMaxCurrent); err != nil {
		return Info{}, err
	}
	if info.HWMinCurrent, err = d.readU16("get_hw_config_min_current", register.Input, AddrHWMinCurrent); err != nil {
		return Info{}, err
	}
	return info, nil
}

// deci converts a value in tenths to a float.
func deci(raw int64) float64 {
	return float64(raw) / 10
}
