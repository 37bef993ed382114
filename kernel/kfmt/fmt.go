package kfmt

import (
	"io"
	"unsafe"
)

// maxBufSize defines the buffer size for formatting numbers. It is large
// enough for a 64-bit value in base 10 plus a sign.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	lowerDigits = "0123456789abcdef"
	upperDigits = "0123456789ABCDEF"

	numFmtBuf = []byte("012345678901234567890123456789012")

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")

	// earlyPrintBuffer is a ring buffer that stores Printf output until an
	// output sink (e.g. the UART) becomes available.
	earlyPrintBuffer ringBuffer

	// outputSink is a io.Writer where Printf will send its output. If set
	// to nil, then the output will be redirected to the earlyPrintBuffer.
	outputSink io.Writer

	// sink routes writes to whatever outputSink is active at the time of
	// the write.
	sink sinkWriter
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the currently active output sink or nil if output is
// still being buffered.
func GetOutputSink() io.Writer {
	return outputSink
}

// Writer returns an io.Writer that forwards its input to the active output
// sink or to the early print buffer if no sink has been set yet. Unlike the
// value returned by GetOutputSink it is never nil and it follows later calls
// to SetOutputSink.
func Writer() io.Writer {
	return &sink
}

// sinkWriter is the io.Writer returned by Writer.
type sinkWriter struct{}

// Write implements io.Writer.
func (*sinkWriter) Write(p []byte) (int, error) {
	doWrite(outputSink, p)
	return len(p), nil
}

// Printf provides a minimal Printf implementation that can be safely used
// before the Go runtime has been properly initialized. This implementation
// does not allocate any memory.
//
// Similar to fmt.Printf, this version of printf supports the following subset
// of formatting verbs:
//
// Strings:
//		%s the uninterpreted bytes of the string or byte slice
//
// Integers:
//		%d base 10
//		%x base 16, with lower-case letters for a-f
//		%X base 16, with upper-case letters for A-F
//
// Booleans:
//		%t "true" or "false"
//
// Width is specified by an optional decimal number immediately preceding the verb.
// If absent, the width is whatever is necessary to represent the value.
//
// String values with length less than the specified width will be left-padded
// with spaces. Base-10 integers are left-padded with spaces and base-16
// integers with zeroes so that addresses line up. A '-' flag before the width
// pads with spaces on the right instead.
//
// Printf supports all built-in string and integer types but assumes that the
// Go itables have not been initialized yet so it will not check whether its
// arguments support io.Stringer if they don't match one of the supported types.
// For the same reason pointers (%p) are not supported.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		ch                   byte
		argIndex, width      int
		leftAlign            bool
		blockStart, blockEnd int
		fmtLen               = len(format)
	)

	for blockEnd < fmtLen {
		if format[blockEnd] != '%' {
			blockEnd++
			continue
		}

		writeString(w, format[blockStart:blockEnd])

		// Scan til we hit the format character
		width, leftAlign = 0, false
		blockEnd++
	parseVerb:
		for ; blockEnd < fmtLen; blockEnd++ {
			ch = format[blockEnd]
			switch {
			case ch == '%':
				writeByte(w, '%')
				break parseVerb
			case ch == '-' && width == 0:
				leftAlign = true
				continue
			case ch >= '0' && ch <= '9':
				width = (width * 10) + int(ch-'0')
				continue
			case ch == 'd' || ch == 'x' || ch == 'X' || ch == 's' || ch == 't':
				if argIndex >= len(args) {
					doWrite(w, errMissingArg)
					break parseVerb
				}

				switch ch {
				case 'd':
					fmtInt(w, args[argIndex], 10, lowerDigits, width, leftAlign)
				case 'x':
					fmtInt(w, args[argIndex], 16, lowerDigits, width, leftAlign)
				case 'X':
					fmtInt(w, args[argIndex], 16, upperDigits, width, leftAlign)
				case 's':
					fmtString(w, args[argIndex], width, leftAlign)
				case 't':
					fmtBool(w, args[argIndex])
				}

				argIndex++
				break parseVerb
			}

			// reached end of formatting string without finding a verb
			doWrite(w, errNoVerb)
		}
		blockStart, blockEnd = blockEnd+1, blockEnd+1
	}

	if blockStart < fmtLen {
		writeString(w, format[blockStart:])
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

// writeString emits s one byte at a time; converting s to a byte slice
// would trigger a memory allocation.
func writeString(w io.Writer, s string) {
	for i := 0; i < len(s); i++ {
		writeByte(w, s[i])
	}
}

func writeByte(w io.Writer, ch byte) {
	singleByte[0] = ch
	doWrite(w, singleByte)
}

// fmtBool prints a formatted version of boolean value v.
func fmtBool(w io.Writer, v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case bVal:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

// fmtString prints a formatted version of string or []byte value v, applying
// the padding specified by width.
func fmtString(w io.Writer, v interface{}, width int, leftAlign bool) {
	var n int
	switch castedVal := v.(type) {
	case string:
		n = len(castedVal)
		if !leftAlign {
			fmtRepeat(w, ' ', width-n)
		}
		writeString(w, castedVal)
	case []byte:
		n = len(castedVal)
		if !leftAlign {
			fmtRepeat(w, ' ', width-n)
		}
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if leftAlign {
		fmtRepeat(w, ' ', width-n)
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	for i := 0; i < count; i++ {
		writeByte(w, ch)
	}
}

// fmtInt prints out a formatted version of v in the requested base using the
// supplied digit set, applying the padding specified by width. Left aligned
// values are always padded with spaces.
func fmtInt(w io.Writer, v interface{}, base uint64, digits string, width int, leftAlign bool) {
	var (
		uval             uint64
		negative         bool
		padCh            byte = '0'
		left, right, end int
		trailing         int
	)

	if leftAlign {
		trailing, width = width, 0
	}

	if width >= maxBufSize {
		width = maxBufSize - 1
	}

	if base == 10 {
		padCh = ' '
	}

	switch t := v.(type) {
	case uint8:
		uval = uint64(t)
	case uint16:
		uval = uint64(t)
	case uint32:
		uval = uint64(t)
	case uint64:
		uval = t
	case uint:
		uval = uint64(t)
	case uintptr:
		uval = uint64(t)
	case int8:
		uval, negative = abs(int64(t))
	case int16:
		uval, negative = abs(int64(t))
	case int32:
		uval, negative = abs(int64(t))
	case int64:
		uval, negative = abs(t)
	case int:
		uval, negative = abs(int64(t))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	// Digits are produced in reverse order and flipped at the end
	for {
		numFmtBuf[right] = digits[uval%base]
		right++

		if uval /= base; uval == 0 {
			break
		}
	}

	for ; right-left < width; right++ {
		numFmtBuf[right] = padCh
	}

	// Place the sign on the leftmost padding space if one is available;
	// otherwise append it as a new character.
	if negative {
		for end = right - 1; numFmtBuf[end] == ' '; end-- {
		}

		if end == right-1 {
			right++
		}

		numFmtBuf[end+1] = '-'
	}

	end = right
	for right = right - 1; left < right; left, right = left+1, right-1 {
		numFmtBuf[left], numFmtBuf[right] = numFmtBuf[right], numFmtBuf[left]
	}

	doWrite(w, numFmtBuf[0:end])
	fmtRepeat(w, ' ', trailing-end)
}

// abs returns the magnitude of v and whether v is negative.
func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

// doWrite is a proxy that uses the runtime.noescape hack to hide p from the
// compiler's escape analysis. Without this hack, the compiler cannot properly
// detect that p does not escape (due to the call to the yet unknown outputSink
// io.Writer) and plays it safe by flagging it as escaping. This causes all
// calls to Printf to call runtime.convT2E which triggers a memory allocation
// causing the kernel to crash if a call to Printf is made before the Go
// allocator is initialized.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
