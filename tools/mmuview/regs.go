package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"pikernel/kernel/mm"
	"pikernel/kernel/mm/vmm"
)

// Regs implements subcommands.Command for the "regs" command.
type Regs struct {
	loadAddr uint64
}

// Name implements subcommands.Command.Name.
func (*Regs) Name() string {
	return "regs"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Regs) Synopsis() string {
	return "Print the system register values used to enable the MMU."
}

// Usage implements subcommands.Command.Usage.
func (*Regs) Usage() string {
	return `regs [options] - Print the MAIR_EL1, TCR_EL1 and TTBR0_EL1 values and
the SCTLR_EL1 bits the kernel programs for the address space.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Regs) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&r.loadAddr, "load-addr", defaultLoadAddr, "Physical address the tables are loaded at.")
}

// Execute implements subcommands.Command.Execute.
func (r *Regs) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	space := args[0].(*vmm.AddressSpace)

	if err := printRegs(space, uintptr(r.loadAddr)); err != nil {
		logrus.WithError(err).Error("Unsupported address space")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printRegs(space *vmm.AddressSpace, loadAddr uintptr) error {
	size := space.Size()
	tcr, kerr := vmm.TCRValue(size)
	if kerr != nil {
		return fmt.Errorf("address space of 0x%x bytes: %w", size, kerr)
	}

	var (
		blocks      = int(size >> mm.BlockShift)
		ttbr0       = loadAddr + uintptr(blocks)*mm.TableSize
		value, unit = mm.Size(size).HumanReadable()
		t0sz        = tcr & 0x3f
	)

	fmt.Fprintf(stdout, "MAIR_EL1   = 0x%016x\n", vmm.MAIRValue())
	fmt.Fprintf(stdout, "TCR_EL1    = 0x%016x (T0SZ=%d, %d %s input range)\n", tcr, t0sz, value, unit)
	fmt.Fprintf(stdout, "TTBR0_EL1  = 0x%016x\n", uint64(ttbr0))
	fmt.Fprintf(stdout, "SCTLR_EL1 |= 0x%x (M, C, I)\n", vmm.SCTLREnableBits)
	return nil
}
