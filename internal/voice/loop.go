package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ashureev/shsh-voice/internal/speech"
)

// StopWord ends the listen loop. It is checked before resolution, so the
// table's own "stop" entry only applies to single-shot use.
const StopWord = "stop"

const listenRetryDelay = 500 * time.Millisecond

// Listen runs the continuous listening loop: each transcript from l is
// handled and its result written to out, until the stop word is heard, a
// StopListening command runs, the source is exhausted, or ctx ends.
func (s *Session) Listen(ctx context.Context, l speech.Listener, out io.Writer) error {
	fmt.Fprintln(out, "Listening for voice commands... Say 'stop' to end listening mode.")

	for {
		text, ok, err := l.Listen(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "Exiting listening mode.")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("Listener failed", "error", err)
			fmt.Fprintln(out, "Didn't catch that. Please try again...")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(listenRetryDelay):
			}
			continue
		}
		if !ok {
			fmt.Fprintln(out, "Didn't catch that. Please try again...")
			continue
		}

		if strings.EqualFold(strings.TrimSpace(text), StopWord) {
			fmt.Fprintln(out, "Exiting listening mode.")
			return nil
		}

		outcome := s.Handle(ctx, "listen", text)
		if !outcome.Matched {
			fmt.Fprintln(out, outcome.Result)
			continue
		}
		fmt.Fprintf(out, "Executing: %s\n", outcome.Command)
		fmt.Fprintln(out, outcome.Result)
		if outcome.Stop {
			fmt.Fprintln(out, "Exiting listening mode.")
			return nil
		}
	}
}
