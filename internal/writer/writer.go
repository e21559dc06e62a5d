// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tamzrod/energy-control/internal/status"
	"github.com/tamzrod/energy-control/internal/telemetry"
)

// endpointClient is the exact contract the replica writer uses.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
	Close() error
}

// Replica mirrors readings and device status into Modbus TCP memory.
type Replica struct {
	plan ReplicaPlan
	cli  endpointClient
	log  zerolog.Logger

	tracker *status.Tracker
	status  *deviceStatusWriter
}

// NewReplica builds a replica sink over an open endpoint client.
func NewReplica(plan ReplicaPlan, cli endpointClient, log zerolog.Logger) *Replica {
	w := &Replica{
		plan:    plan,
		cli:     cli,
		log:     log,
		tracker: status.NewTracker(),
	}
	if plan.Status != nil {
		w.status = newDeviceStatusWriter(plan.UnitID, *plan.Status, cli)
	}
	return w
}

// Write delivers one result. A failed sample writes no data,
// only the status block.
func (w *Replica) Write(res telemetry.Result) error {
	if w.cli == nil {
		return fmt.Errorf("writer: missing client for endpoint %s", w.plan.Endpoint)
	}

	var errs []string

	// ------------------------------------------------------------
	// DATA WRITES
	// ------------------------------------------------------------

	if res.Err == nil {
		regs, err := EncodeReading(res.Reading)
		if err != nil {
			errs = append(errs, err.Error())
		} else if err := w.cli.WriteRegisters(w.plan.UnitID, w.plan.Address, regs); err != nil {
			errs = append(errs, fmt.Sprintf(
				"writer: ep=%s unit=%d addr=%d err=%v",
				w.plan.Endpoint, w.plan.UnitID, w.plan.Address, err,
			))
		}
	}

	// ------------------------------------------------------------
	// STATUS WRITES (data, different address)
	// ------------------------------------------------------------

	if w.status != nil {
		w.tracker.Observe(res.Err, res.At)
		if res.Err == nil {
			w.tracker.SetChargingState(res.Reading.ChargingState.Code)
		}
		if err := w.status.WriteStatus(w.tracker.Snapshot()); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	w.log.Debug().
		Str("endpoint", w.plan.Endpoint).
		Uint8("unit_id", w.plan.UnitID).
		Bool("sample_ok", res.Err == nil).
		Msg("replica updated")
	return nil
}

// Close releases the endpoint connection.
func (w *Replica) Close() error {
	if w.cli == nil {
		return nil
	}
	return w.cli.Close()
}
