package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"pikernel/kernel/mm/vmm"
)

// Resolve implements subcommands.Command for the "resolve" command.
type Resolve struct{}

// Name implements subcommands.Command.Name.
func (*Resolve) Name() string {
	return "resolve"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Resolve) Synopsis() string {
	return "Translate virtual addresses through the address space."
}

// Usage implements subcommands.Command.Usage.
func (*Resolve) Usage() string {
	return `resolve ADDR... - Print the physical address, attributes and region
of each virtual address. Addresses accept the 0x prefix.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Resolve) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Resolve) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	space := args[0].(*vmm.AddressSpace)
	status := subcommands.ExitSuccess
	for _, arg := range f.Args() {
		virtAddr, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			logrus.Errorf("Invalid address %q: %v", arg, err)
			status = subcommands.ExitFailure
			continue
		}

		line, err := resolveAddress(space, uintptr(virtAddr))
		if err != nil {
			logrus.Errorf("Cannot resolve 0x%x: %v", virtAddr, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Fprintln(stdout, line)
	}

	return status
}

// resolveAddress returns a one-line description of the translation of
// virtAddr.
func resolveAddress(space *vmm.AddressSpace, virtAddr uintptr) (string, error) {
	td, kerr := space.Lookup(virtAddr)
	if kerr != nil {
		return "", kerr
	}

	physAddr, attrs, kerr := space.Resolve(virtAddr)
	if kerr != nil {
		return "", kerr
	}

	return fmt.Sprintf("0x%08x -> 0x%08x %s %s %-3s %s",
		virtAddr, physAddr, attrs.Memory, attrs.Access, attrs.ExecuteString(), td.Label), nil
}
