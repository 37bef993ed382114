package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"pikernel/kernel/mm"
	"pikernel/kernel/mm/vmm"
)

// defaultLoadAddr places the tables right after the sample kernel image.
const defaultLoadAddr = sampleCodeEnd

// Build implements subcommands.Command for the "build" command.
type Build struct {
	output   string
	loadAddr uint64
	verbose  bool
}

// Name implements subcommands.Command.Name.
func (*Build) Name() string {
	return "build"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Build) Synopsis() string {
	return "Compile the address space into translation tables."
}

// Usage implements subcommands.Command.Usage.
func (*Build) Usage() string {
	return `build [options] - Build the level 2 and level 3 translation tables the
kernel would build for the address space and summarize the mappings. With -o
the raw little-endian table image (level 3 tables followed by the level 2
array) is written to a file.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Build) SetFlags(f *flag.FlagSet) {
	f.StringVar(&b.output, "o", "", "Write the raw table image to this file.")
	f.Uint64Var(&b.loadAddr, "load-addr", defaultLoadAddr, "Physical address the tables are loaded at. Must be aligned to 64KiB.")
	f.BoolVar(&b.verbose, "v", false, "Also print the level 2 table entries.")
}

// Execute implements subcommands.Command.Execute.
func (b *Build) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	space := args[0].(*vmm.AddressSpace)

	tables, storage, err := buildTables(space, uintptr(b.loadAddr))
	if err != nil {
		logrus.WithError(err).Error("Failed to build translation tables")
		return subcommands.ExitFailure
	}
	defer func() {
		if err := storage.release(); err != nil {
			logrus.WithError(err).Warn("Failed to release table storage")
		}
	}()

	fmt.Fprintf(stdout, "%d level 2 entries, %d bytes of tables, TTBR0_EL1 = 0x%x\n",
		tables.Blocks(), len(storage.bytes()), tables.PhysBaseAddr())

	if b.verbose {
		for blockIndex := 0; blockIndex < tables.Blocks(); blockIndex++ {
			td, _ := tables.TableEntry(blockIndex)
			fmt.Fprintf(stdout, "L2[%d] = 0x%016x (level 3 table at 0x%x)\n", blockIndex, uint64(td), td.NextTableAddress())
		}
	}

	if err := printRuns(stdout, summarize(tables)); err != nil {
		logrus.WithError(err).Error("Failed to print summary")
		return subcommands.ExitFailure
	}

	if b.output != "" {
		if err := os.WriteFile(b.output, storage.bytes(), 0644); err != nil {
			logrus.WithError(err).Errorf("Failed to write table image")
			return subcommands.ExitFailure
		}
		logrus.Infof("Wrote %d bytes to %s", len(storage.bytes()), b.output)
	}

	return subcommands.ExitSuccess
}

// buildTables populates translation tables for space in freshly mapped
// storage. The tables are built as if loaded at loadAddr.
func buildTables(space *vmm.AddressSpace, loadAddr uintptr) (*vmm.TranslationTables, *tableStorage, error) {
	size := space.Size()
	if _, kerr := vmm.TCRValue(size); kerr != nil {
		return nil, nil, fmt.Errorf("address space of 0x%x bytes: %w", size, kerr)
	}

	blocks := int(size >> mm.BlockShift)
	storage, err := allocStorage(vmm.TablesSize(blocks))
	if err != nil {
		return nil, nil, err
	}

	var tables vmm.TranslationTables
	if kerr := tables.Init(storage.addr(), loadAddr, blocks); kerr != nil {
		_ = storage.release()
		return nil, nil, fmt.Errorf("load address 0x%x: %w", loadAddr, kerr)
	}

	logrus.Debugf("Populating %d level 3 tables", blocks)
	if kerr := tables.Populate(space); kerr != nil {
		_ = storage.release()
		return nil, nil, kerr
	}

	return &tables, storage, nil
}

// run is a sequence of pages that map to contiguous physical memory with the
// same attributes.
type run struct {
	VirtStart uintptr
	VirtEnd   uintptr
	PhysStart uintptr
	Attrs     vmm.AttributeFields
	Pages     int
}

// summarize coalesces the level 3 entries of tables into runs.
func summarize(tables *vmm.TranslationTables) []run {
	var runs []run

	pages := mm.Page(tables.Blocks() * mm.PagesPerBlock)
	for page := mm.Page(0); page < pages; page++ {
		virtAddr := page.Address()
		pd, _ := tables.Entry(virtAddr)
		frame, attrs := pd.Frame(), pd.Attributes()
		physAddr := frame.Address()

		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.Attrs == attrs && mm.FrameFromAddress(last.PhysStart)+mm.Frame(last.Pages) == frame {
				last.VirtEnd = virtAddr + mm.PageSize - 1
				last.Pages++
				continue
			}
		}

		runs = append(runs, run{
			VirtStart: virtAddr,
			VirtEnd:   virtAddr + mm.PageSize - 1,
			PhysStart: physAddr,
			Attrs:     attrs,
			Pages:     1,
		})
	}

	return runs
}

func printRuns(w io.Writer, runs []run) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VIRTUAL\tPHYSICAL\tATTRIBUTES\tPAGES")
	for _, r := range runs {
		fmt.Fprintf(tw, "0x%09x-0x%09x\t0x%09x\t%s %s %s\t%d\n",
			r.VirtStart, r.VirtEnd, r.PhysStart, r.Attrs.Memory, r.Attrs.Access, r.Attrs.ExecuteString(), r.Pages)
	}
	return tw.Flush()
}
