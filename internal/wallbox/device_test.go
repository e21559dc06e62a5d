package wallbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	gmodbus "github.com/goburrow/modbus"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/register"
	"github.com/tamzrod/energy-control/internal/response"
)

// ---- fake transport ----

type writeCall struct {
	unitID uint8
	addr   uint16
	value  uint16
}

type fakeTransport struct {
	input   map[uint16]uint16
	holding map[uint16]uint16

	readErr  error
	writeErr error

	reads  int
	writes []writeCall
	closed int
}

func newFake() *fakeTransport {
	return &fakeTransport{
		input:   map[uint16]uint16{},
		holding: map[uint16]uint16{},
	}
}

func (f *fakeTransport) ReadRegisters(unitID uint8, space register.Space, addr, qty uint16) ([]uint16, error) {
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	table := f.input
	if space == register.Holding {
		table = f.holding
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = table[addr+uint16(i)]
	}
	return out, nil
}

func (f *fakeTransport) WriteRegister(unitID uint8, addr, value uint16) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, writeCall{unitID: unitID, addr: addr, value: value})
	f.holding[addr] = value
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed++
	return nil
}

func newDevice(t *testing.T, f *fakeTransport) *Device {
	t.Helper()
	d, err := New(f, 1)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return d
}

// ---- construction ----

func TestNew_RejectsBadUnitID(t *testing.T) {
	if _, err := New(newFake(), 0); err == nil {
		t.Fatalf("expected error for broadcast unit id")
	}
	if _, err := New(newFake(), 248); err == nil {
		t.Fatalf("expected error for reserved unit id")
	}
	if _, err := New(nil, 1); err == nil {
		t.Fatalf("expected error for nil transport")
	}
}

// ---- telemetry ----

func TestLayoutVersion(t *testing.T) {
	f := newFake()
	f.input[AddrLayoutVersion] = 0x108
	d := newDevice(t, f)

	v, err := d.RegisterLayoutVersion()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if v != "v1.0.8" {
		t.Fatalf("got=%q want=%q", v, "v1.0.8")
	}
}

func TestChargingState(t *testing.T) {
	f := newFake()
	f.input[AddrChargingState] = 6
	d := newDevice(t, f)

	s, err := d.ChargingState()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if s.IEC() != "C1" {
		t.Fatalf("IEC got=%q", s.IEC())
	}
	if s.Vehicle() != "Vehicle plugged with charging request" {
		t.Fatalf("Vehicle got=%q", s.Vehicle())
	}
	if s.Wallbox() != "Wallbox does not allow charging" {
		t.Fatalf("Wallbox got=%q", s.Wallbox())
	}
}

func TestChargingState_UndefinedCode(t *testing.T) {
	for _, code := range []uint16{0, 1, 12, 0xFFFF} {
		f := newFake()
		f.input[AddrChargingState] = code
		d := newDevice(t, f)

		_, err := d.ChargingState()
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("code %d: expected DecodeError, got %v", code, err)
		}
		if KindOf(err) != KindDecode {
			t.Fatalf("code %d: kind=%s", code, KindOf(err))
		}
	}
}

func TestChargingState_AllCodesMapped(t *testing.T) {
	for code := uint16(2); code <= 11; code++ {
		s, ok := ParseChargingState(code)
		if !ok {
			t.Fatalf("code %d not mapped", code)
		}
		if s.IEC() == "?" || s.Vehicle() == "?" || s.Wallbox() == "?" {
			t.Fatalf("code %d has an unmapped label: %s", code, s)
		}
	}
}

func TestPhaseCurrentsScaled(t *testing.T) {
	f := newFake()
	f.input[6], f.input[7], f.input[8] = 123, 0, 160
	d := newDevice(t, f)

	i, err := d.PhaseCurrents()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if i[0] != 12.3 || i[1] != 0 || i[2] != 16.0 {
		t.Fatalf("got=%v", i)
	}
}

func TestPCBTemperatureSigned(t *testing.T) {
	f := newFake()
	f.input[AddrPCBTemperature] = uint16(0xFFC9) // -55
	d := newDevice(t, f)

	temp, err := d.PCBTemperature()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if temp != -5.5 {
		t.Fatalf("got=%v want=-5.5", temp)
	}
}

func TestPhaseVoltagesUnscaled(t *testing.T) {
	f := newFake()
	f.input[10], f.input[11], f.input[12] = 230, 231, 229
	d := newDevice(t, f)

	u, err := d.PhaseVoltages()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if u != [3]uint16{230, 231, 229} {
		t.Fatalf("got=%v", u)
	}
}

func TestEnergyComposition(t *testing.T) {
	f := newFake()
	f.input[15], f.input[16] = 1, 1000
	f.input[17], f.input[18] = 5, 10
	d := newDevice(t, f)

	e, err := d.EnergySincePowerOn()
	if err != nil || e != 66536 {
		t.Fatalf("power-on energy got=%d err=%v", e, err)
	}
	e, err = d.EnergySinceInstallation()
	if err != nil || e != 327690 {
		t.Fatalf("installation energy got=%d err=%v", e, err)
	}
}

func TestExternLockState(t *testing.T) {
	f := newFake()
	f.input[AddrExternLockState] = 1
	d := newDevice(t, f)

	l, err := d.ExternLockState()
	if err != nil || l != Unlocked {
		t.Fatalf("got=%v err=%v", l, err)
	}

	f.input[AddrExternLockState] = 7
	if _, err := d.ExternLockState(); KindOf(err) != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	f := newFake()
	f.input[AddrLayoutVersion] = 0x100
	f.input[AddrSoftwareRevision] = 1234
	f.input[AddrHWMaxCurrent] = 16
	f.input[AddrHWMinCurrent] = 6
	d := newDevice(t, f)

	info, err := d.Info()
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := Info{LayoutVersion: "v1.0.0", SoftwareRevision: 1234, HWMaxCurrent: 16, HWMinCurrent: 6}
	if info != want {
		t.Fatalf("got=%+v want=%+v", info, want)
	}
}

// ---- failure propagation ----

func TestReadFailuresAreTagged(t *testing.T) {
	f := newFake()
	f.readErr = errors.New("serial: i/o timeout")
	d := newDevice(t, f)

	_, err := d.Power()
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport kind, got %s (%v)", KindOf(err), err)
	}

	f.readErr = &gmodbus.ModbusError{FunctionCode: 0x83, ExceptionCode: 2}
	_, err = d.WatchdogTimeout()
	if KindOf(err) != KindProtocol {
		t.Fatalf("expected protocol kind, got %s (%v)", KindOf(err), err)
	}
	var pe *response.ProtocolException
	if !errors.As(err, &pe) || pe.ExceptionCode != 2 {
		t.Fatalf("exception code not preserved: %v", err)
	}
}

type shortTransport struct{ fakeTransport }

func (s *shortTransport) ReadRegisters(unitID uint8, space register.Space, addr, qty uint16) ([]uint16, error) {
	return []uint16{1}, nil
}

func TestShortPayloadIsTransportError(t *testing.T) {
	d, err := New(&shortTransport{}, 1)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	_, err = d.PhaseCurrents()
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport kind, got %s (%v)", KindOf(err), err)
	}
	if !errors.Is(err, register.ErrWordCount) {
		t.Fatalf("expected ErrWordCount in chain, got %v", err)
	}
}

// ---- configuration writes ----

func TestSetMaximalCurrentCommand_Clamps(t *testing.T) {
	f := newFake()
	d := newDevice(t, f)

	written, err := d.SetMaximalCurrentCommand(20.0)
	if err != nil || !written {
		t.Fatalf("written=%v err=%v", written, err)
	}
	if len(f.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(f.writes))
	}
	if w := f.writes[0]; w.addr != AddrMaximalCurrentCommand || w.value != 160 || w.unitID != 1 {
		t.Fatalf("unexpected write: %+v", w)
	}
}

func TestSetMaximalCurrentCommand_BelowSixStillWrites(t *testing.T) {
	f := newFake()
	d := newDevice(t, f)

	written, err := d.SetMaximalCurrentCommand(5.0)
	if err != nil || !written {
		t.Fatalf("written=%v err=%v", written, err)
	}
	if f.writes[0].value != 50 {
		t.Fatalf("got=%d want=50", f.writes[0].value)
	}
}

// warnEvents returns the decoded warn-level events in a JSON log buffer.
func warnEvents(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if ev["level"] == "warn" {
			out = append(out, ev)
		}
	}
	return out
}

func TestCurrentSetters_WarnBelowSix(t *testing.T) {
	setters := map[string]func(d *Device, amps float64) error{
		"set_maximal_current_command": func(d *Device, amps float64) error {
			_, err := d.SetMaximalCurrentCommand(amps)
			return err
		},
		"set_failsafe_current_config": func(d *Device, amps float64) error {
			return d.SetFailsafeCurrentConfig(amps)
		},
	}
	cases := []struct {
		amps  float64
		raw   uint16
		warns int
	}{
		{amps: 5.0, raw: 50, warns: 1},
		{amps: 0, raw: 0, warns: 0},
		{amps: 6.0, raw: 60, warns: 0},
	}

	for op, set := range setters {
		for _, tc := range cases {
			f := newFake()
			// Non-matching current value so the compare step never skips.
			f.holding[AddrMaximalCurrentCommand] = 999
			var buf bytes.Buffer
			d, err := New(f, 1, WithLogger(zerolog.New(&buf)))
			if err != nil {
				t.Fatalf("New() err=%v", err)
			}

			if err := set(d, tc.amps); err != nil {
				t.Fatalf("%s(%v) err=%v", op, tc.amps, err)
			}
			if len(f.writes) != 1 || f.writes[0].value != tc.raw {
				t.Fatalf("%s(%v) writes=%+v want value %d", op, tc.amps, f.writes, tc.raw)
			}

			warns := warnEvents(t, &buf)
			if len(warns) != tc.warns {
				t.Fatalf("%s(%v) warn events=%d want %d: %s", op, tc.amps, len(warns), tc.warns, buf.String())
			}
			if tc.warns == 1 && warns[0]["op"] != op {
				t.Fatalf("warn op=%v want %s", warns[0]["op"], op)
			}
		}
	}
}

func TestSetMaximalCurrentCommand_SkipsUnchanged(t *testing.T) {
	f := newFake()
	f.holding[AddrMaximalCurrentCommand] = 100
	d := newDevice(t, f)

	written, err := d.SetMaximalCurrentCommand(10.0)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if written {
		t.Fatalf("expected skipped write")
	}
	if len(f.writes) != 0 {
		t.Fatalf("expected 0 write calls, got %d", len(f.writes))
	}
}

func TestSetMaximalCurrentCommand_ReadFailureAborts(t *testing.T) {
	f := newFake()
	f.readErr = errors.New("link down")
	d := newDevice(t, f)

	if _, err := d.SetMaximalCurrentCommand(10.0); KindOf(err) != KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
	if len(f.writes) != 0 {
		t.Fatalf("no write expected after failed read")
	}
}

func TestSetMaximalCurrentCommand_RejectsNegative(t *testing.T) {
	f := newFake()
	d := newDevice(t, f)

	if _, err := d.SetMaximalCurrentCommand(-1); KindOf(err) != KindPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if f.reads != 0 || len(f.writes) != 0 {
		t.Fatalf("transport must not be touched")
	}
}

func TestSetFailsafeCurrentConfig_AlwaysWrites(t *testing.T) {
	f := newFake()
	f.holding[AddrFailsafeCurrentConfig] = 100
	d := newDevice(t, f)

	if err := d.SetFailsafeCurrentConfig(10.0); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := d.SetFailsafeCurrentConfig(42); err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(f.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(f.writes))
	}
	if f.writes[0].value != 100 || f.writes[1].value != 160 {
		t.Fatalf("unexpected writes: %+v", f.writes)
	}
	if f.reads != 0 {
		t.Fatalf("failsafe write must not read first")
	}

	amps, err := d.FailsafeCurrentConfig()
	if err != nil || amps != 16.0 {
		t.Fatalf("got=%v err=%v", amps, err)
	}
}

func TestSetStandbyFunctionControl_Guard(t *testing.T) {
	f := newFake()
	d := newDevice(t, f)

	err := d.SetStandbyFunctionControl(2)
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if f.reads != 0 || len(f.writes) != 0 {
		t.Fatalf("transport must not be invoked")
	}

	if err := d.SetStandbyFunctionControl(StandbyDisabled); err != nil {
		t.Fatalf("err=%v", err)
	}
	if f.writes[0].addr != AddrStandbyFunctionControl || f.writes[0].value != 4 {
		t.Fatalf("unexpected write: %+v", f.writes[0])
	}

	m, err := d.StandbyFunctionControl()
	if err != nil || m != StandbyDisabled {
		t.Fatalf("got=%v err=%v", m, err)
	}
}

func TestSetRemoteLock_Guard(t *testing.T) {
	f := newFake()
	d := newDevice(t, f)

	if err := d.SetRemoteLock(3); KindOf(err) != KindPrecondition {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if len(f.writes) != 0 {
		t.Fatalf("transport must not be invoked")
	}
	if err := d.SetRemoteLock(Locked); err != nil {
		t.Fatalf("err=%v", err)
	}
	l, err := d.RemoteLock()
	if err != nil || l != Locked {
		t.Fatalf("got=%v err=%v", l, err)
	}
}

func TestSetWatchdogTimeout_Verbatim(t *testing.T) {
	f := newFake()
	d := newDevice(t, f)

	if err := d.SetWatchdogTimeout(65535); err != nil {
		t.Fatalf("err=%v", err)
	}
	ms, err := d.WatchdogTimeout()
	if err != nil || ms != 65535 {
		t.Fatalf("got=%d err=%v", ms, err)
	}
}

func TestWriteExceptionIsProtocolError(t *testing.T) {
	f := newFake()
	f.writeErr = &gmodbus.ModbusError{FunctionCode: 0x86, ExceptionCode: 3}
	d := newDevice(t, f)

	err := d.SetWatchdogTimeout(1000)
	if KindOf(err) != KindProtocol {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

// ---- lifecycle ----

func TestClose_ReleasesOnceAndBlocksIO(t *testing.T) {
	f := newFake()
	d := newDevice(t, f)

	if err := d.Close(); err != nil {
		t.Fatalf("Close err=%v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close err=%v", err)
	}
	if f.closed != 1 {
		t.Fatalf("transport closed %d times", f.closed)
	}

	_, err := d.Power()
	if !errors.Is(err, ErrClosed) || KindOf(err) != KindPrecondition {
		t.Fatalf("expected ErrClosed precondition, got %v", err)
	}
	if f.reads != 0 {
		t.Fatalf("closed device must not read")
	}
}

func TestPower(t *testing.T) {
	f := newFake()
	f.input[AddrPower] = 11040
	d := newDevice(t, f)

	p, err := d.Power()
	if err != nil || p != 11040 {
		t.Fatalf("Power got=%d err=%v", p, err)
	}
}

func TestHoldingGetters(t *testing.T) {
	f := newFake()
	f.holding[AddrWatchdogTimeout] = 15000
	f.holding[AddrStandbyFunctionControl] = 4
	f.holding[AddrRemoteLock] = 1
	f.holding[AddrMaximalCurrentCommand] = 160
	f.holding[AddrFailsafeCurrentConfig] = 60
	d := newDevice(t, f)

	if ms, err := d.WatchdogTimeout(); err != nil || ms != 15000 {
		t.Fatalf("WatchdogTimeout got=%d err=%v", ms, err)
	}
	if m, err := d.StandbyFunctionControl(); err != nil || m != StandbyDisabled || m.String() != "disable StandBy Function" {
		t.Fatalf("StandbyFunctionControl got=%v err=%v", m, err)
	}
	if l, err := d.RemoteLock(); err != nil || l != Unlocked {
		t.Fatalf("RemoteLock got=%v err=%v", l, err)
	}
	if a, err := d.MaximalCurrentCommand(); err != nil || a != 16 {
		t.Fatalf("MaximalCurrentCommand got=%v err=%v", a, err)
	}
	if a, err := d.FailsafeCurrentConfig(); err != nil || a != 6 {
		t.Fatalf("FailsafeCurrentConfig got=%v err=%v", a, err)
	}
	if len(f.writes) != 0 {
		t.Fatalf("getters must not write")
	}
}

func TestHoldingGetters_UndefinedValues(t *testing.T) {
	f := newFake()
	f.holding[AddrStandbyFunctionControl] = 2
	f.holding[AddrRemoteLock] = 7
	d := newDevice(t, f)

	if _, err := d.StandbyFunctionControl(); KindOf(err) != KindDecode {
		t.Fatalf("standby 2: expected decode error, got %v", err)
	}
	if _, err := d.RemoteLock(); KindOf(err) != KindDecode {
		t.Fatalf("remote lock 7: expected decode error, got %v", err)
	}
}
