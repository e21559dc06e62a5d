// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/energy-control/internal/status"
)

// deviceStatusWriter delivers a snapshot into status memory verbatim.
// No logic, no interpretation.
type deviceStatusWriter struct {
	unitID uint8
	plan   StatusPlan
	cli    endpointClient

	needFull bool
	last     status.Snapshot
}

func newDeviceStatusWriter(unitID uint8, plan StatusPlan, cli endpointClient) *deviceStatusWriter {
	return &deviceStatusWriter{
		unitID:   unitID,
		plan:     plan,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}
}

// WriteStatus writes the full block once, then only changed slots.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw.cli == nil {
		return errors.New("status writer: missing client")
	}

	baseAddr := sw.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		regs := status.Encode(s, sw.plan.DeviceName)

		if err := sw.cli.WriteRegisters(sw.unitID, baseAddr, regs); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	slots := []struct {
		name string
		slot uint16
		prev *uint16
		next uint16
	}{
		{"health", status.SlotHealthCode, &sw.last.Health, s.Health},
		{"last_error", status.SlotLastErrorCode, &sw.last.LastErrorCode, s.LastErrorCode},
		{"seconds_in_error", status.SlotSecondsInError, &sw.last.SecondsInError, s.SecondsInError},
		{"charging_state", status.SlotChargingState, &sw.last.ChargingState, s.ChargingState},
	}

	var errs []string
	for _, sl := range slots {
		if *sl.prev == sl.next {
			continue
		}
		if err := sw.cli.WriteRegisters(sw.unitID, baseAddr+sl.slot, []uint16{sl.next}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", sl.slot, sl.name, err))
			continue
		}
		*sl.prev = sl.next
	}
	sw.last.ErrorKind = s.ErrorKind

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
