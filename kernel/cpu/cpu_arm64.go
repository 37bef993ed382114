package cpu

// Halt stops instruction execution by parking the core in a WFE loop.
func Halt()

// ISB executes an instruction synchronization barrier so that subsequent
// instruction fetches observe any preceding system register changes.
func ISB()

// CurrentEL returns the raw value of the CurrentEL register.
func CurrentEL() uint64

// ReadSCTLR returns the value of the SCTLR_EL1 system control register.
func ReadSCTLR() uint64

// WriteSCTLR stores val to the SCTLR_EL1 system control register.
func WriteSCTLR(val uint64)

// ReadIDAA64MMFR0 returns the value of the ID_AA64MMFR0_EL1 register which
// describes the memory model features (supported granules, PA range)
// implemented by the processor.
func ReadIDAA64MMFR0() uint64

// WriteMAIR stores val to the MAIR_EL1 memory attribute indirection register.
func WriteMAIR(val uint64)

// WriteTTBR0 stores val to the TTBR0_EL1 translation table base register.
func WriteTTBR0(val uint64)

// WriteTCR stores val to the TCR_EL1 translation control register.
func WriteTCR(val uint64)
