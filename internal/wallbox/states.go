// internal/wallbox/states.go
package wallbox

import "fmt"

// ChargingState is the EN 61851-1 state reported in register 5.
// Odd codes within a letter mean the wallbox authorises charging.
type ChargingState uint16

const (
	StateA1       ChargingState = 2
	StateA2       ChargingState = 3
	StateB1       ChargingState = 4
	StateB2       ChargingState = 5
	StateC1       ChargingState = 6
	StateC2       ChargingState = 7
	StateDerating ChargingState = 8
	StateE        ChargingState = 9
	StateF        ChargingState = 10
	StateError    ChargingState = 11
)

// ParseChargingState rejects codes outside 2..11.
func ParseChargingState(raw uint16) (ChargingState, bool) {
	s := ChargingState(raw)
	switch s {
	case StateA1, StateA2, StateB1, StateB2, StateC1, StateC2,
		StateDerating, StateE, StateF, StateError:
		return s, true
	default:
		return 0, false
	}
}

// IEC returns the EN 61851-1 state name.
func (s ChargingState) IEC() string {
	switch s {
	case StateA1:
		return "A1"
	case StateA2:
		return "A2"
	case StateB1:
		return "B1"
	case StateB2:
		return "B2"
	case StateC1:
		return "C1"
	case StateC2:
		return "C2"
	case StateE:
		return "E"
	case StateF:
		return "F"
	case StateDerating, StateError:
		return "--"
	default:
		return "?"
	}
}

// Vehicle describes vehicle presence.
func (s ChargingState) Vehicle() string {
	switch s {
	case StateA1, StateA2:
		return "No vehicle plugged"
	case StateB1, StateB2:
		return "Vehicle plugged without charging request"
	case StateC1, StateC2:
		return "Vehicle plugged with charging request"
	case StateE:
		return "Error"
	case StateDerating, StateF, StateError:
		return "--"
	default:
		return "?"
	}
}

// Wallbox describes whether the wallbox permits charging.
func (s ChargingState) Wallbox() string {
	switch s {
	case StateA1, StateB1, StateC1:
		return "Wallbox does not allow charging"
	case StateA2, StateB2, StateC2:
		return "Wallbox allow charging"
	case StateDerating:
		return "Derating"
	case StateE, StateError:
		return "Error"
	case StateF:
		return "Wallbox locked or not ready"
	default:
		return "?"
	}
}

// ChargingAllowed reports the even/odd sub-state of A, B and C.
func (s ChargingState) ChargingAllowed() bool {
	switch s {
	case StateA2, StateB2, StateC2:
		return true
	default:
		return false
	}
}

func (s ChargingState) String() string {
	return fmt.Sprintf("%s %s %s", s.IEC(), s.Vehicle(), s.Wallbox())
}

// LockState is used by the extern lock input (13) and remote lock (259).
type LockState uint16

const (
	Locked   LockState = 0
	Unlocked LockState = 1
)

func (l LockState) valid() bool { return l == Locked || l == Unlocked }

func (l LockState) String() string {
	switch l {
	case Locked:
		return "System locked"
	case Unlocked:
		return "System unlocked"
	default:
		return fmt.Sprintf("lock(%d)", uint16(l))
	}
}

// StandbyMode is register 258. Only 0 and 4 are defined.
type StandbyMode uint16

const (
	StandbyEnabled  StandbyMode = 0
	StandbyDisabled StandbyMode = 4
)

func (m StandbyMode) valid() bool { return m == StandbyEnabled || m == StandbyDisabled }

func (m StandbyMode) String() string {
	switch m {
	case StandbyEnabled:
		return "enable StandBy Function"
	case StandbyDisabled:
		return "disable StandBy Function"
	default:
		return fmt.Sprintf("standby(%d)", uint16(m))
	}
}
