// internal/wallbox/settings.go
package wallbox

import (
	"math"

	"github.com/tamzrod/energy-control/internal/register"
)

// WatchdogTimeout returns register 257 in milliseconds.
func (d *Device) WatchdogTimeout() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readU16("get_watchdog_timeout", register.Holding, AddrWatchdogTimeout)
}

// SetWatchdogTimeout writes the timeout in milliseconds verbatim.
func (d *Device) SetWatchdogTimeout(ms uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write("set_watchdog_timeout", AddrWatchdogTimeout, register.U16, uint64(ms))
}

// StandbyFunctionControl reads register 258.
func (d *Device) StandbyFunctionControl() (StandbyMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "get_standby_function_control"
	raw, err := d.readU16(op, register.Holding, AddrStandbyFunctionControl)
	if err != nil {
		return 0, err
	}
	m := StandbyMode(raw)
	if !m.valid() {
		return 0, &DecodeError{Op: op, Address: AddrStandbyFunctionControl, Raw: uint64(raw), Msg: "standby mode must be 0 or 4"}
	}
	return m, nil
}

// SetStandbyFunctionControl accepts only StandbyEnabled (0) and
// StandbyDisabled (4); anything else never reaches the bus.
func (d *Device) SetStandbyFunctionControl(m StandbyMode) error {
	const op = "set_standby_function_control"
	if !m.valid() {
		return precondition(op, "invalid standby mode %d (want 0 or 4)", uint16(m))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(op, AddrStandbyFunctionControl, register.U16, uint64(m))
}

// RemoteLock reads register 259.
func (d *Device) RemoteLock() (LockState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "get_remote_lock"
	raw, err := d.readU16(op, register.Holding, AddrRemoteLock)
	if err != nil {
		return 0, err
	}
	l := LockState(raw)
	if !l.valid() {
		return 0, &DecodeError{Op: op, Address: AddrRemoteLock, Raw: uint64(raw), Msg: "lock state must be 0 or 1"}
	}
	return l, nil
}

// SetRemoteLock accepts only Locked (0) and Unlocked (1).
func (d *Device) SetRemoteLock(l LockState) error {
	const op = "set_remote_lock"
	if !l.valid() {
		return precondition(op, "invalid lock state %d (want 0 or 1)", uint16(l))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(op, AddrRemoteLock, register.U16, uint64(l))
}

// MaximalCurrentCommand reads register 261 in amperes.
func (d *Device) MaximalCurrentCommand() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.readU16("get_maximal_current_command", register.Holding, AddrMaximalCurrentCommand)
	if err != nil {
		return 0, err
	}
	return deci(int64(raw)), nil
}

// SetMaximalCurrentCommand clamps amps to MaxCurrent and writes it in
// 0.1 A steps. The write is skipped when the device already holds the
// value; written reports whether a write was issued.
func (d *Device) SetMaximalCurrentCommand(amps float64) (written bool, err error) {
	const op = "set_maximal_current_command"
	raw, err := d.currentCommand(op, amps)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	actual, err := d.readU16(op, register.Holding, AddrMaximalCurrentCommand)
	if err != nil {
		return false, err
	}
	if actual == raw {
		d.log.Info().
			Str("op", op).
			Float64("amps", deci(int64(raw))).
			Msg("value already set, write skipped")
		return false, nil
	}

	if err := d.write(op, AddrMaximalCurrentCommand, register.U16, uint64(raw)); err != nil {
		return false, err
	}
	return true, nil
}

// FailsafeCurrentConfig reads register 262 in amperes.
func (d *Device) FailsafeCurrentConfig() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.readU16("get_failsafe_current_config", register.Holding, AddrFailsafeCurrentConfig)
	if err != nil {
		return 0, err
	}
	return deci(int64(raw)), nil
}

// SetFailsafeCurrentConfig clamps like SetMaximalCurrentCommand but always writes.
func (d *Device) SetFailsafeCurrentConfig(amps float64) error {
	const op = "set_failsafe_current_config"
	raw, err := d.currentCommand(op, amps)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(op, AddrFailsafeCurrentConfig, register.U16, uint64(raw))
}

// currentCommand bounds amps and scales it to the 0.1 A wire unit.
// Values below MinChargingCurrent are written as given; the firmware
// treats them as 0 A, so a warning is emitted.
func (d *Device) currentCommand(op string, amps float64) (uint16, error) {
	if math.IsNaN(amps) || amps < 0 {
		return 0, precondition(op, "current must be a non-negative number, got %v", amps)
	}
	if amps > MaxCurrent {
		d.log.Debug().
			Str("op", op).
			Float64("requested", amps).
			Float64("amps", MaxCurrent).
			Msg("current bounded")
		amps = MaxCurrent
	}
	raw := uint16(math.Round(amps * 10))
	if raw > 0 && amps < MinChargingCurrent {
		d.log.Warn().
			Str("op", op).
			Float64("amps", amps).
			Msg("current below 6.0 A is interpreted as 0.0 A by the device")
	}
	return raw, nil
}
