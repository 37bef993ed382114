package kmain

import (
	"pikernel/kernel"
	"pikernel/kernel/cpu"
	"pikernel/kernel/kfmt"
	"pikernel/kernel/mm/vmm"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	privilegeLevelFn = cpu.CurrentPrivilegeLevel
	vmmInitFn        = vmm.Init
	panicFn          = kfmt.Panic
)

// Kmain is the only Go symbol that is visible (exported) from the boot
// assembly. It is invoked on the boot core after the drop to EL1, with a
// stack set up and the BSS cleared.
//
// The boot code passes the link-time bounds of the kernel code and read-only
// data (end exclusive) and the address of the granule-aligned region reserved
// for the translation tables (vmm.KernelTablesSize bytes).
//
// Kmain is not expected to return. If it does, the boot code will halt the CPU.
//
//go:noinline
func Kmain(codeStart, codeEnd, tablesBase uintptr) {
	kfmt.Infof("Current privilege level: %s", privilegeLevelFn().String())

	if err := vmmInitFn(codeStart, codeEnd, tablesBase); err != nil {
		panicFn(err)
		return
	}

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}
