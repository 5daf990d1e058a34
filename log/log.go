package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity orders log output. A message is written when its severity is at or below Level().
type Severity int32

const (
	SilentLevel Severity = iota
	MajorLevel
	MinorLevel
	DebugLevel
)

var levelNames = [...]string{"Silent", "Major", "Minor", "Debug"}

var (
	majorPrefix = ""
	minorPrefix = "  "
	debugPrefix = "   Dbg:"

	mu    sync.Mutex // Serializes writes as transfers log from many goroutines
	out   io.Writer  = os.Stdout
	level atomic.Int32
)

func (t Severity) String() string {
	if t > SilentLevel && int(t) < len(levelNames) {
		return levelNames[t]
	}

	return levelNames[SilentLevel]
}

// ParseLevel converts the command line representation of a level into a Severity. Case
// is ignored.
func ParseLevel(s string) (Severity, error) {
	for ix, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Severity(ix), nil
		}
	}

	return SilentLevel, fmt.Errorf("unknown log level '%s'", s)
}

// SetOut changes the output of logging to the supplied io.Writer. The default is
// os.Stdout. The supplied io.Writer must never be nil.
func SetOut(w io.Writer) {
	if w == nil {
		panic("log.SetOut() called with a nil io.Writer")
	}
	mu.Lock()
	out = w
	mu.Unlock()
}

// SetFile directs all logging to a size-rotated file. The returned io.Closer should be
// closed on shutdown. Rotation is fixed at 20MB, three backups and fourteen days.
func SetFile(path string) io.Closer {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
	}
	SetOut(lj)

	return lj
}

// Out returns the current io.Writer for specialist output which is not controlled by
// log levels, such as usage and start-up messages. The return value is never nil.
func Out() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// SetLevel may be called at any time, including while other go-routines are logging.
func SetLevel(l Severity) {
	level.Store(int32(l))
}

func Level() Severity {
	return Severity(level.Load())
}

// IfMajor returns true if Major logging is written to the output stream. Callers use the
// If* functions when evaluating the log arguments is expensive.
func IfMajor() bool { return Level() >= MajorLevel }
func IfMinor() bool { return Level() >= MinorLevel }
func IfDebug() bool { return Level() >= DebugLevel }

// Majorf is the fmt.Printf equivalent for Major events. A trailing newline is always
// added so callers should not supply one.
func Majorf(format string, a ...interface{}) (int, error) {
	return logf(MajorLevel, majorPrefix, format, a...)
}

// Major is the fmt.Print equivalent, so spaces are only added between operands when
// neither is a string.
func Major(a ...interface{}) (int, error) {
	return logln(MajorLevel, majorPrefix, a...)
}

func Minorf(format string, a ...interface{}) (int, error) {
	return logf(MinorLevel, minorPrefix, format, a...)
}

func Minor(a ...interface{}) (int, error) {
	return logln(MinorLevel, minorPrefix, a...)
}

func Debugf(format string, a ...interface{}) (int, error) {
	return logf(DebugLevel, debugPrefix, format, a...)
}

func Debug(a ...interface{}) (int, error) {
	return logln(DebugLevel, debugPrefix, a...)
}

func logf(l Severity, prefix, format string, a ...interface{}) (int, error) {
	if Level() < l {
		return 0, nil
	}

	return prefixAndPrintLines(fmt.Sprintf(format, a...), prefix)
}

func logln(l Severity, prefix string, a ...interface{}) (int, error) {
	if Level() < l {
		return 0, nil
	}

	return prefixAndPrintLines(fmt.Sprint(a...), prefix)
}

// prefixAndPrintLines writes each line of lines with prefix. Trailing empty lines are
// dropped and exactly one newline terminates the output.
func prefixAndPrintLines(lines, prefix string) (int, error) {
	lines = strings.TrimRight(lines, "\n")
	if strings.IndexByte(lines, '\n') >= 0 {
		lines = strings.ReplaceAll(lines, "\n", "\n"+prefix)
	}

	mu.Lock()
	defer mu.Unlock()

	return io.WriteString(out, prefix+lines+"\n")
}
