// internal/writer/types.go
package writer

import "github.com/tamzrod/energy-control/internal/telemetry"

// Sink delivers telemetry results downstream.
type Sink interface {
	Write(res telemetry.Result) error
	Close() error
}

// StatusPlan places the device status block in replica memory.
type StatusPlan struct {
	BaseSlot   uint16
	DeviceName string
}

// ReplicaPlan is the fully-built write plan for one replica target.
type ReplicaPlan struct {
	Endpoint string
	UnitID   uint8
	Address  uint16 // first register of the reading block

	// nil disables the status block
	Status *StatusPlan
}
