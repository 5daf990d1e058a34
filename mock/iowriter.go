package mock

import (
	"strings"
	"sync"
)

// IOWriter is an io.Writer which accumulates everything written for later inspection.
// Safe for concurrent use as transfers log from worker go-routines.
type IOWriter struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (t *IOWriter) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf.Write(b)
}

func (t *IOWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Reset()
}

func (t *IOWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf.String()
}

func (t *IOWriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf.Len()
}

// Contains reports whether s has been written.
func (t *IOWriter) Contains(s string) bool {
	return strings.Contains(t.String(), s)
}
