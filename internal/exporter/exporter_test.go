package exporter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/register"
	"github.com/tamzrod/energy-control/internal/response"
	"github.com/tamzrod/energy-control/internal/status"
	"github.com/tamzrod/energy-control/internal/telemetry"
	"github.com/tamzrod/energy-control/internal/wallbox"
)

// ---- fakes ----

type fakeSource struct {
	err     error
	samples int
}

func (f *fakeSource) UnitID() uint8 { return 1 }

func (f *fakeSource) PhaseCurrents() ([3]float64, error) {
	f.samples++
	return [3]float64{12.3, 12.1, 0}, f.err
}

func (f *fakeSource) PhaseVoltages() ([3]uint16, error) { return [3]uint16{230, 231, 229}, nil }
func (f *fakeSource) Power() (uint16, error) { return 5600, nil }
func (f *fakeSource) PCBTemperature() (float64, error) { return 31.5, nil }
func (f *fakeSource) EnergySincePowerOn() (uint32, error) { return 66536, nil }
func (f *fakeSource) EnergySinceInstallation() (uint32, error) {
	return 327690, nil
}
func (f *fakeSource) ChargingState() (wallbox.ChargingState, error) { return wallbox.StateC2, nil }

type fakeSink struct{ got []telemetry.Result }

func (s *fakeSink) Write(res telemetry.Result) error {
	s.got = append(s.got, res)
	return nil
}

type fakeTransport struct {
	readErr  error
	writeErr error
	short    bool // answer reads one register short
}

func (f *fakeTransport) ReadRegisters(_ uint8, _ register.Space, _, qty uint16) ([]uint16, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if f.short {
		return make([]uint16, qty-1), nil
	}
	return make([]uint16, qty), nil
}

func (f *fakeTransport) WriteRegister(uint8, uint16, uint16) error { return f.writeErr }
func (f *fakeTransport) Close() error { return nil }

// ---- collector ----

func TestCollector_SamplesOnScrape(t *testing.T) {
	src := &fakeSource{}
	sink := &fakeSink{}
	c := NewCollector(src, sink, zerolog.Nop())

	expected := `
# HELP energyctl_power_va Charging power.
# TYPE energyctl_power_va gauge
energyctl_power_va{unit_id="1"} 5600
# HELP energyctl_up 1 if the last sample succeeded.
# TYPE energyctl_up gauge
energyctl_up{unit_id="1"} 1
# HELP energyctl_charging_state Charging state code (2..11).
# TYPE energyctl_charging_state gauge
energyctl_charging_state{iec="C2",unit_id="1"} 7
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"energyctl_power_va", "energyctl_up", "energyctl_charging_state"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}

	if src.samples != 1 {
		t.Fatalf("expected exactly one sample per scrape, got %d", src.samples)
	}
	if len(sink.got) != 1 || sink.got[0].Err != nil {
		t.Fatalf("sample not forwarded to sink: %+v", sink.got)
	}
}

func TestCollector_FailedSampleReportsDown(t *testing.T) {
	src := &fakeSource{err: &response.TransportError{Err: errors.New("no response")}}
	c := NewCollector(src, nil, zerolog.Nop())

	// up, health, last_error_code only
	if n := testutil.CollectAndCount(c); n != 3 {
		t.Fatalf("expected 3 metrics on failure, got %d", n)
	}

	_, snap := c.Last()
	if snap.Health != status.HealthError || snap.LastErrorCode != status.CodeTransport {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

// ---- instrumented transport ----

func TestInstrument_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	ft := &fakeTransport{}
	tr, err := Instrument(ft, reg)
	if err != nil {
		t.Fatalf("Instrument err=%v", err)
	}

	if _, err := tr.ReadRegisters(1, register.Input, 4, 1); err != nil {
		t.Fatalf("read err=%v", err)
	}
	ft.readErr = &response.ProtocolException{Function: 4, ExceptionCode: 2}
	_, _ = tr.ReadRegisters(1, register.Input, 999, 1)
	ft.writeErr = errors.New("timeout")
	_ = tr.WriteRegister(1, 261, 160)

	cases := []struct {
		space, outcome string
		want           float64
	}{
		{"input", "success", 1},
		{"input", "protocol_exception", 1},
		{"holding", "transport_error", 1},
		{"holding", "success", 0},
	}
	for _, c := range cases {
		got := testutil.ToFloat64(tr.exchanges.WithLabelValues(c.space, c.outcome))
		if got != c.want {
			t.Fatalf("exchanges{%s,%s} got=%v want=%v", c.space, c.outcome, got, c.want)
		}
	}

	if _, err := Instrument(ft, reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestInstrument_MisSizedReadIsTransportError(t *testing.T) {
	reg := prometheus.NewRegistry()
	ft := &fakeTransport{short: true}
	tr, err := Instrument(ft, reg)
	if err != nil {
		t.Fatalf("Instrument err=%v", err)
	}

	if _, err := tr.ReadRegisters(1, register.Input, 6, 2); err != nil {
		t.Fatalf("read err=%v", err)
	}

	if got := testutil.ToFloat64(tr.exchanges.WithLabelValues("input", "transport_error")); got != 1 {
		t.Fatalf("exchanges{input,transport_error} got=%v want=1", got)
	}
	if got := testutil.ToFloat64(tr.exchanges.WithLabelValues("input", "success")); got != 0 {
		t.Fatalf("exchanges{input,success} got=%v want=0", got)
	}
}

// ---- http ----

func newTestServer(src *fakeSource) (*Server, *Collector) {
	reg := prometheus.NewRegistry()
	c := NewCollector(src, nil, zerolog.Nop())
	reg.MustRegister(c)
	return NewServer(":0", "garage", c, reg, zerolog.Nop()), c
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Metrics(t *testing.T) {
	s, _ := newTestServer(&fakeSource{})

	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `energyctl_phase_current_amperes{phase="1",unit_id="1"} 12.3`) {
		t.Fatalf("current metric missing:\n%s", rec.Body.String())
	}
}

func TestServer_HealthFollowsDevice(t *testing.T) {
	src := &fakeSource{}
	s, c := newTestServer(src)

	if rec := get(t, s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz before first sample got=%d", rec.Code)
	}

	src.err = &response.TransportError{Err: errors.New("no response")}
	c.Sample()
	if rec := get(t, s, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz in error got=%d", rec.Code)
	}
}

func TestServer_StatusAPI(t *testing.T) {
	s, _ := newTestServer(&fakeSource{})

	rec := get(t, s, "/api/v1/status")
	var empty StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Reading != nil || empty.Status.Health != status.HealthUnknown {
		t.Fatalf("expected no reading before first sample: %+v", empty)
	}

	rec = get(t, s, "/api/v1/status?refresh=1")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type got=%q", ct)
	}
	var body StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Device != "garage" || body.Reading == nil || body.Status.Health != status.HealthOK {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(body.Tuple) != len(telemetry.TupleFields) || body.Tuple[8] != 66.536 {
		t.Fatalf("unexpected tuple %v", body.Tuple)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(&fakeSource{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status got=%d", rec.Code)
	}
}
