package dnsutil

import (
	"errors"
	"io"
	"os"
	"strings"
)

// shortenedError retains the original error for errors.Is and errors.As.
type shortenedError struct {
	msg string
	err error
}

func (t *shortenedError) Error() string { return t.msg }
func (t *shortenedError) Unwrap() error { return t.err }

var shortenings = []struct{ contains, msg string }{
	{"i/o timeout", "Timeout"},
	{"connection refused", "Connection refused"},
	{"connection reset", "Connection reset"},
	{"no such host", "No such host"},
}

// ShortenLookupError turns the long unwieldy errors returned by net.Resolver and miekg
// exchanges into something succinct enough for a single log line. Errors which are not
// recognized are returned unchanged.
func ShortenLookupError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return &shortenedError{msg: "Timeout", err: err}
	case errors.Is(err, io.EOF):
		return &shortenedError{msg: "Connection closed", err: err}
	}

	m := err.Error()
	for _, s := range shortenings {
		if strings.Contains(m, s.contains) {
			return &shortenedError{msg: s.msg, err: err}
		}
	}

	return err
}
