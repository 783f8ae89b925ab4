// Package speech adapts transcript sources to the listen loop.
package speech

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Listener yields one transcript per call. ok is false when the input was
// not usable and the caller should ask again. io.EOF means the source is
// exhausted.
type Listener interface {
	Listen(ctx context.Context) (text string, ok bool, err error)
}

// LineListener reads one transcript per line, e.g. from a terminal or the
// output of an external recognizer piped into the process.
type LineListener struct {
	scanner *bufio.Scanner
}

// NewLineListener reads transcripts from r.
func NewLineListener(r io.Reader) *LineListener {
	return &LineListener{scanner: bufio.NewScanner(r)}
}

// Listen implements Listener. Blank lines are reported as unusable input.
func (l *LineListener) Listen(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return "", false, err
		}
		return "", false, io.EOF
	}
	text := strings.ToLower(strings.TrimSpace(l.scanner.Text()))
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}
