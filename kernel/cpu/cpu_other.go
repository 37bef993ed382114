//go:build !arm64

package cpu

// The register primitives below only exist on arm64. These stubs allow the
// kernel packages to be built and tested on a development host where every
// call site is replaced by a mock.

const errUnsupportedArch = "cpu: system register access requires arm64"

// Halt stops instruction execution.
func Halt() { panic(errUnsupportedArch) }

// ISB executes an instruction synchronization barrier.
func ISB() { panic(errUnsupportedArch) }

// CurrentEL returns the raw value of the CurrentEL register.
func CurrentEL() uint64 { panic(errUnsupportedArch) }

// ReadSCTLR returns the value of the SCTLR_EL1 system control register.
func ReadSCTLR() uint64 { panic(errUnsupportedArch) }

// WriteSCTLR stores val to the SCTLR_EL1 system control register.
func WriteSCTLR(_ uint64) { panic(errUnsupportedArch) }

// ReadIDAA64MMFR0 returns the value of the ID_AA64MMFR0_EL1 register.
func ReadIDAA64MMFR0() uint64 { panic(errUnsupportedArch) }

// WriteMAIR stores val to the MAIR_EL1 register.
func WriteMAIR(_ uint64) { panic(errUnsupportedArch) }

// WriteTTBR0 stores val to the TTBR0_EL1 register.
func WriteTTBR0(_ uint64) { panic(errUnsupportedArch) }

// WriteTCR stores val to the TCR_EL1 register.
func WriteTCR(_ uint64) { panic(errUnsupportedArch) }
