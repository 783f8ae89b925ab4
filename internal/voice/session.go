// Package voice ties resolution and execution into one serialized session.
package voice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/ashureev/shsh-voice/internal/engine"
	"github.com/ashureev/shsh-voice/internal/journal"
	"github.com/ashureev/shsh-voice/internal/patterns"
	"github.com/google/uuid"
)

// Outcome describes one handled transcript or command line.
type Outcome struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Matched bool      `json:"matched"`
	Command string    `json:"command,omitempty"`
	Result  string    `json:"result"`
	Stop    bool      `json:"stop,omitempty"`
	WorkDir string    `json:"work_dir"`
	Time    time.Time `json:"time"`
}

// Session resolves transcripts and executes them one at a time. The lock
// spans resolution and execution, so interleaved front-ends cannot observe
// or disturb a half-finished transition.
type Session struct {
	mu       sync.Mutex
	id       string
	resolver *patterns.Resolver
	engine   *engine.Engine
	journal  journal.Recorder
	logger   *slog.Logger
}

// NewSession creates a session. rec may be nil.
func NewSession(resolver *patterns.Resolver, eng *engine.Engine, rec journal.Recorder, logger *slog.Logger) *Session {
	if rec == nil {
		rec = journal.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:       uuid.NewString(),
		resolver: resolver,
		engine:   eng,
		journal:  rec,
		logger:   logger,
	}
}

// ID returns the session identifier used in journal events.
func (s *Session) ID() string { return s.id }

// Engine returns the session's execution engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Handle resolves text and, if a mapping exists, executes it.
func (s *Session) Handle(ctx context.Context, source, text string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Outcome{ID: uuid.NewString(), Text: text, Time: time.Now()}

	cmd, err := s.resolver.Resolve(text)
	if err != nil {
		var noMatch *domain.NoMatchError
		if !errors.As(err, &noMatch) {
			noMatch = &domain.NoMatchError{Text: text}
		}
		out.Result = noMatch.Error()
		out.WorkDir = s.engine.WorkDir()
		s.logger.Info("No mapping found", "source", source, "text", text)
		s.record(source, out)
		return out
	}

	return s.run(ctx, source, cmd, out)
}

// Resolve reports the command text would map to without executing it.
func (s *Session) Resolve(text string) (domain.Command, error) {
	return s.resolver.Resolve(text)
}

// ExecuteLine executes concrete command text directly, bypassing the table.
func (s *Session) ExecuteLine(ctx context.Context, source, line string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Outcome{ID: uuid.NewString(), Text: line, Time: time.Now()}
	return s.run(ctx, source, domain.ParseCommand(line), out)
}

func (s *Session) run(ctx context.Context, source string, cmd domain.Command, out Outcome) Outcome {
	out.Matched = true
	out.Command = cmd.String()
	_, out.Stop = cmd.(domain.StopListening)

	s.logger.Info("Executing", "source", source, "text", out.Text, "command", out.Command)
	out.Result = s.engine.Execute(ctx, cmd)
	out.WorkDir = s.engine.WorkDir()
	s.record(source, out)
	return out
}

func (s *Session) record(source string, out Outcome) {
	s.journal.Record(journal.Event{
		ID:        out.ID,
		SessionID: s.id,
		Source:    source,
		Text:      out.Text,
		Matched:   out.Matched,
		Command:   out.Command,
		Result:    out.Result,
		WorkDir:   out.WorkDir,
		Timestamp: out.Time,
	})
}
