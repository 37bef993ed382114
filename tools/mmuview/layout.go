package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"pikernel/kernel/mm/vmm"
)

// Layout implements subcommands.Command for the "layout" command.
type Layout struct{}

// Name implements subcommands.Command.Name.
func (*Layout) Name() string {
	return "layout"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Layout) Synopsis() string {
	return "Print the translation descriptors of the address space."
}

// Usage implements subcommands.Command.Usage.
func (*Layout) Usage() string {
	return `layout - Print the translation descriptors in lookup order, in the
same format the kernel logs them after enabling the MMU.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Layout) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Layout) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	space := args[0].(*vmm.AddressSpace)
	space.Print(stdout)
	return subcommands.ExitSuccess
}
