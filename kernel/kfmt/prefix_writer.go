package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	// midLine is set while the last written line has not been terminated
	// yet, so the next write must not emit another prefix.
	midLine bool
}

// Write writes len(p) bytes from p to the underlying data stream and returns
// back the number of bytes written. The injected prefix is not included in
// the number of written bytes returned by this method.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var (
		written, n int
		err        error
		lineStart  int
	)

	for index := 0; index < len(p); index++ {
		if p[index] != '\n' {
			continue
		}

		if n, err = w.writeLine(p[lineStart : index+1]); err != nil {
			return written + n, err
		}
		written += n
		w.midLine = false
		lineStart = index + 1
	}

	if lineStart < len(p) {
		n, err = w.writeLine(p[lineStart:])
		written += n
		w.midLine = true
	}

	return written, err
}

// writeLine emits the prefix if this is the start of a new line followed by
// the line contents.
func (w *PrefixWriter) writeLine(line []byte) (int, error) {
	if !w.midLine {
		if _, err := w.Sink.Write(w.Prefix); err != nil {
			return 0, err
		}
	}

	return w.Sink.Write(line)
}
