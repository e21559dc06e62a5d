// internal/wallbox/registers.go
package wallbox

// Input registers (FC 4), read-only telemetry.
const (
	AddrLayoutVersion           uint16 = 4
	AddrChargingState           uint16 = 5
	AddrPhaseCurrents           uint16 = 6 // L1..L3, 0.1 A
	AddrPCBTemperature          uint16 = 9 // S16, 0.1 °C
	AddrPhaseVoltages           uint16 = 10
	AddrExternLockState         uint16 = 13
	AddrPower                   uint16 = 14
	AddrEnergySincePowerOn      uint16 = 15 // high word, low word at 16
	AddrEnergySinceInstallation uint16 = 17 // high word, low word at 18
	AddrHWMaxCurrent            uint16 = 100
	AddrHWMinCurrent            uint16 = 101
	AddrSoftwareRevision        uint16 = 203
)

// Holding registers (FC 3 read, FC 6 write), configuration.
const (
	AddrWatchdogTimeout        uint16 = 257
	AddrStandbyFunctionControl uint16 = 258
	AddrRemoteLock             uint16 = 259
	AddrMaximalCurrentCommand  uint16 = 261
	AddrFailsafeCurrentConfig  uint16 = 262
)

// Current command limits in amperes.
const (
	// MaxCurrent is the upper bound applied to every current write.
	MaxCurrent = 16.0
	// MinChargingCurrent is the lowest value the firmware honours;
	// anything below is treated as 0 A by the device.
	MinChargingCurrent = 6.0
)
