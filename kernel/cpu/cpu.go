package cpu

var (
	currentELFn = CurrentEL
)

// PrivilegeLevel describes an AArch64 exception level.
type PrivilegeLevel uint8

// The exception levels reported by CurrentEL.
const (
	PrivilegeUnknown PrivilegeLevel = iota
	PrivilegeApplication
	PrivilegeKernel
	PrivilegeHypervisor
	PrivilegeSecureMonitor
)

// String implements fmt.Stringer for PrivilegeLevel.
func (pl PrivilegeLevel) String() string {
	switch pl {
	case PrivilegeApplication:
		return "EL0 (application)"
	case PrivilegeKernel:
		return "EL1 (kernel)"
	case PrivilegeHypervisor:
		return "EL2 (hypervisor)"
	case PrivilegeSecureMonitor:
		return "EL3 (secure monitor)"
	default:
		return "unknown"
	}
}

// CurrentPrivilegeLevel returns the exception level the core is executing
// at. The level is stored in bits [3:2] of CurrentEL.
func CurrentPrivilegeLevel() PrivilegeLevel {
	switch (currentELFn() >> 2) & 0x3 {
	case 0:
		return PrivilegeApplication
	case 1:
		return PrivilegeKernel
	case 2:
		return PrivilegeHypervisor
	case 3:
		return PrivilegeSecureMonitor
	}

	return PrivilegeUnknown
}
