package vmm

import (
	"pikernel/kernel"
	"pikernel/kernel/cpu"
	"pikernel/kernel/mm"
)

var (
	// The following functions are mocked by tests; touching the real
	// system registers outside EL1 raises an exception.
	readSCTLRFn  = cpu.ReadSCTLR
	writeSCTLRFn = cpu.WriteSCTLR
	readMMFR0Fn  = cpu.ReadIDAA64MMFR0
	writeMAIRFn  = cpu.WriteMAIR
	writeTTBR0Fn = cpu.WriteTTBR0
	writeTCRFn   = cpu.WriteTCR
	isbFn        = cpu.ISB

	// ErrAlreadyEnabled is returned by Enable when address translation is
	// already active.
	ErrAlreadyEnabled = &kernel.Error{Module: "vmm", Message: "MMU is already enabled"}

	// ErrGranuleUnsupported is returned by Enable when the processor does
	// not implement the 64KiB translation granule.
	ErrGranuleUnsupported = &kernel.Error{Module: "vmm", Message: "64KiB translation granule not supported by the processor"}

	// ErrInvalidAddressSpace is returned by Enable when the address space
	// size cannot be expressed through TCR_EL1.T0SZ with a level 2 start or
	// does not match the translation tables.
	ErrInvalidAddressSpace = &kernel.Error{Module: "vmm", Message: "address space size is not supported"}

	// ErrTableBuildFailed is returned by Enable when the translation tables
	// could not be populated. Its Cause holds the population error of the
	// most recent Enable call and is cleared whenever Enable starts, so it
	// must be inspected before Enable is called again.
	ErrTableBuildFailed = &kernel.Error{Module: "vmm", Message: "could not populate translation tables"}
)

const (
	// MAIR_EL1 attribute encodings.
	mairDeviceNGnRE   = 0b0000_0100
	mairNormalWBRWA   = 0b1111_1111
	mairAttrFieldBits = 8

	// TCR_EL1 fields.
	tcrIPS40Bit          = uint64(0b010) << 32
	tcrTG0Granule64K     = uint64(0b01) << 14
	tcrSH0InnerShareable = uint64(0b11) << 12
	tcrORGN0WriteBack    = uint64(0b01) << 10
	tcrIRGN0WriteBack    = uint64(0b01) << 8
	tcrEPD1              = uint64(1) << 23

	// A level 2 start with the 64KiB granule requires T0SZ in [22, 35].
	minAddressSpaceShift = mm.BlockShift
	maxAddressSpaceShift = 42

	// ID_AA64MMFR0_EL1.TGran64 is 0b0000 when the granule is supported.
	mmfr0TGran64Shift = 24
	mmfr0TGran64Mask  = 0xf

	sctlrM = uint64(1) << 0
	sctlrC = uint64(1) << 2
	sctlrI = uint64(1) << 12

	// SCTLREnableBits are OR-ed into SCTLR_EL1 to switch on address
	// translation together with the data and instruction caches.
	SCTLREnableBits = sctlrM | sctlrC | sctlrI
)

// State describes the progress of an MMU through its enable sequence.
type State uint8

// The states of an MMU. A failed Enable returns the MMU to StateDisabled.
const (
	StateDisabled State = iota
	StateConfiguring
	StatePopulated
	StateEnabled
)

// String implements fmt.Stringer for State.
func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateConfiguring:
		return "configuring"
	case StatePopulated:
		return "populated"
	case StateEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// MAIRValue returns the MAIR_EL1 value expected by the page descriptors that
// Populate generates.
func MAIRValue() uint64 {
	return mairDeviceNGnRE<<(mairIndexDevice*mairAttrFieldBits) |
		mairNormalWBRWA<<(mairIndexNormal*mairAttrFieldBits)
}

// TCRValue returns the TCR_EL1 value for a TTBR0 address space of the given
// size in bytes. The size must be a power of two between one block and 4TiB.
func TCRValue(size uint64) (uint64, *kernel.Error) {
	if size == 0 || size&(size-1) != 0 {
		return 0, ErrInvalidAddressSpace
	}

	shift := log2(size)
	if shift < uint64(minAddressSpaceShift) || shift > maxAddressSpaceShift {
		return 0, ErrInvalidAddressSpace
	}

	return tcrIPS40Bit | tcrTG0Granule64K | tcrSH0InnerShareable |
		tcrORGN0WriteBack | tcrIRGN0WriteBack | tcrEPD1 | (64 - shift), nil
}

// log2 returns the index of the highest set bit of a non-zero value.
func log2(value uint64) uint64 {
	var shift uint64
	for value > 1 {
		value >>= 1
		shift++
	}
	return shift
}

// GranuleSupported returns true if the processor implements the 64KiB
// translation granule.
func GranuleSupported() bool {
	return (readMMFR0Fn()>>mmfr0TGran64Shift)&mmfr0TGran64Mask == 0
}

// IsEnabled returns true if stage 1 address translation is active.
func IsEnabled() bool {
	return readSCTLRFn()&sctlrM != 0
}

// MMU drives the one-shot sequence that builds the translation tables for an
// address space and switches on address translation.
type MMU struct {
	space  *AddressSpace
	tables *TranslationTables
	state  State
}

// Init attaches the address space and the (already overlaid) tables that
// Enable will use. The MMU takes exclusive ownership of both.
func (m *MMU) Init(space *AddressSpace, tables *TranslationTables) {
	m.space = space
	m.tables = tables
	m.state = StateDisabled
}

// State returns the current state of the enable sequence.
func (m *MMU) State() State {
	return m.state
}

// Enable populates the translation tables and activates them. All
// preconditions are checked before any system register is written, so a
// failed call leaves the processor untouched except for MAIR_EL1 when the
// tables cannot be populated.
func (m *MMU) Enable() *kernel.Error {
	ErrTableBuildFailed.Cause = nil

	if m.state == StateEnabled || IsEnabled() {
		return ErrAlreadyEnabled
	}

	if !GranuleSupported() {
		return ErrGranuleUnsupported
	}

	tcr, err := TCRValue(m.space.Size())
	if err != nil {
		return err
	}
	if m.tables.Coverage() != m.space.Size() {
		return ErrInvalidAddressSpace
	}

	m.state = StateConfiguring
	writeMAIRFn(MAIRValue())

	if err = m.tables.Populate(m.space); err != nil {
		m.state = StateDisabled
		ErrTableBuildFailed.Cause = err
		return ErrTableBuildFailed
	}
	m.state = StatePopulated

	writeTTBR0Fn(uint64(m.tables.PhysBaseAddr()))
	writeTCRFn(tcr)

	writeSCTLRFn(readSCTLRFn() | SCTLREnableBits)
	isbFn()

	m.state = StateEnabled
	return nil
}
