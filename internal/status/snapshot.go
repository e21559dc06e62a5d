// internal/status/snapshot.go
package status

import (
	"time"

	"github.com/tamzrod/energy-control/internal/wallbox"
)

// Snapshot is the device health as last observed.
type Snapshot struct {
	Health         uint16 `json:"health"`
	LastErrorCode  uint16 `json:"last_error_code"`
	ErrorKind      string `json:"error_kind,omitempty"`
	SecondsInError uint16 `json:"seconds_in_error"`
	ChargingState  uint16 `json:"charging_state,omitempty"`
}

// Tracker folds exchange results into a Snapshot.
// Not safe for concurrent use.
type Tracker struct {
	snap       Snapshot
	errorSince time.Time
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Observe records the outcome of one operation at now.
// It reports whether the snapshot changed.
func (t *Tracker) Observe(err error, now time.Time) bool {
	prev := t.snap

	if err == nil {
		// Recovery / OK
		t.snap.Health = HealthOK
		t.snap.LastErrorCode = CodeNone
		t.snap.ErrorKind = ""
		t.snap.SecondsInError = 0
		t.errorSince = time.Time{}
		return prev != t.snap
	}

	if t.snap.Health != HealthError {
		t.errorSince = now
	}
	t.snap.Health = HealthError
	t.snap.LastErrorCode = CodeOf(err)
	t.snap.ErrorKind = wallbox.KindOf(err).String()

	// seconds_in_error MUST NOT wrap
	secs := now.Sub(t.errorSince) / time.Second
	if secs > 65535 {
		secs = 65535
	}
	t.snap.SecondsInError = uint16(secs)

	return prev != t.snap
}

// SetChargingState records the last good charging state code.
func (t *Tracker) SetChargingState(code uint16) {
	t.snap.ChargingState = code
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }
