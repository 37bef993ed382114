// Command mmuview inspects the translation layout of the kernel (or one
// described in a TOML file) on a development host. It resolves addresses,
// compiles the layout into the exact translation tables the kernel would
// build and prints the control register values the MMU would be programmed
// with.
package main

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

var (
	layoutPath = flag.String("layout", "", "TOML file describing the address space. The kernel layout is used when empty.")
	debug      = flag.Bool("debug", false, "Enable debug logging.")

	// stdout is replaced by tests.
	stdout io.Writer = os.Stdout
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Layout), "")
	subcommands.Register(new(Resolve), "")
	subcommands.Register(new(Build), "")
	subcommands.Register(new(Regs), "")

	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	space, err := loadAddressSpace(*layoutPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load layout")
	}

	os.Exit(int(subcommands.Execute(context.Background(), space)))
}
