// internal/status/constants.go
package status

// Device status block layout, as written to a replica target.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of registers per status block.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the device health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code (see CodeOf).
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the device has been in error.
const SlotSecondsInError = 2

// SlotChargingState mirrors the last good charging state code.
const SlotChargingState = 3

// Slots 4-10 are reserved.
const (
	SlotReservedStart = 4
	SlotReservedEnd   = 10
)

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 11

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- HEALTH CODES ----

const (
	// HealthUnknown represents an unknown or boot state.
	HealthUnknown uint16 = 0
	// HealthOK represents a healthy device.
	HealthOK uint16 = 1
	// HealthError represents a device error state.
	HealthError uint16 = 2
)

// ---- ERROR CODES ----
// Protocol exceptions are reported with their own code (1..255).

const (
	CodeNone         uint16 = 0
	CodeGeneric      uint16 = 1
	CodeTransport    uint16 = 0x1000
	CodeTimeout      uint16 = 0x1001
	CodeDecode       uint16 = 0x2000
	CodePrecondition uint16 = 0x3000
)
