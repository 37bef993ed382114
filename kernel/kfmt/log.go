package kfmt

// Level describes the severity of a log entry.
type Level uint8

// The supported log levels.
const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

var levelPrefixes = [...]string{
	LevelInfo:  "[info] ",
	LevelWarn:  "[warn] ",
	LevelError: "[error] ",
}

// String returns the tag that prefixes entries logged with this level.
func (l Level) String() string {
	if int(l) < len(levelPrefixes) {
		return levelPrefixes[l]
	}
	return "[?] "
}

// Logf writes a single log line tagged with the supplied level to the active
// output sink. A line feed is appended to the formatted message.
func Logf(level Level, format string, args ...interface{}) {
	writeString(outputSink, level.String())
	Fprintf(outputSink, format, args...)
	writeByte(outputSink, '\n')
}

// Infof logs an informational message.
func Infof(format string, args ...interface{}) { Logf(LevelInfo, format, args...) }

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) { Logf(LevelWarn, format, args...) }

// Errorf logs an error.
func Errorf(format string, args ...interface{}) { Logf(LevelError, format, args...) }
