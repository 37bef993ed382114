package mm

// Physical memory map of the BCM2711 (Raspberry Pi 4) in low peripheral mode.
const (
	// MaxVirtAddr is the last virtual address covered by the kernel's
	// translation tables (4GiB address space).
	MaxVirtAddr = uintptr(0xFFFF_FFFF)

	// MMIOStart is the first address of the peripheral window.
	MMIOStart = uintptr(0xFE00_0000)

	// MMIOEnd is the last address (inclusive) of the peripheral window.
	MMIOEnd = uintptr(0xFF84_FFFF)

	// GPIOStart is the base address of the GPIO register block.
	GPIOStart = MMIOStart + 0x20_0000

	// UART0Start is the base address of the PL011 UART register block.
	UART0Start = MMIOStart + 0x20_1000
)
