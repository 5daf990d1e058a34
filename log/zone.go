package log

import (
	"fmt"
)

// Zone is a logger which prefixes every line with the zone it relates to. Zone
// maintenance is concurrent across zones so interleaved output is otherwise hard to
// attribute.
type Zone struct {
	prefix string
}

// ForZone returns a Zone logger for the named zone. The class is omitted when it is IN.
func ForZone(name, class string) *Zone {
	if class == "" || class == "IN" {
		return &Zone{prefix: name + ": "}
	}

	return &Zone{prefix: name + "/" + class + ": "}
}

func (t *Zone) Majorf(format string, a ...interface{}) {
	if IfMajor() {
		prefixAndPrintLines(t.prefix+fmt.Sprintf(format, a...), majorPrefix)
	}
}

func (t *Zone) Minorf(format string, a ...interface{}) {
	if IfMinor() {
		prefixAndPrintLines(t.prefix+fmt.Sprintf(format, a...), minorPrefix)
	}
}

func (t *Zone) Debugf(format string, a ...interface{}) {
	if IfDebug() {
		prefixAndPrintLines(t.prefix+fmt.Sprintf(format, a...), debugPrefix)
	}
}
