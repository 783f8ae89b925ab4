// Package journal appends voice command events to an NDJSON file.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one transcript handled by a session.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	Matched   bool      `json:"matched"`
	Command   string    `json:"command,omitempty"`
	Result    string    `json:"result"`
	WorkDir   string    `json:"work_dir,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder receives events. Record must not block the caller.
type Recorder interface {
	Record(event Event)
	Close() error
}

// Config controls the NDJSON journal.
type Config struct {
	Enabled   bool
	Path      string
	QueueSize int
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(Event) {}
func (Nop) Close() error { return nil }

// Writer appends events from a bounded queue on a background goroutine.
// When the queue is full, new events are dropped and counted.
type Writer struct {
	file    *os.File
	queue   chan Event
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.Mutex
	closed  bool
	dropped int
	logger  *slog.Logger
}

// New opens the journal. A disabled config yields a Nop recorder.
func New(cfg Config, logger *slog.Logger) (Recorder, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	w := &Writer{
		file:   f,
		queue:  make(chan Event, cfg.QueueSize),
		logger: logger,
	}
	w.wg.Add(1)
	go w.run()
	logger.Info("Journal enabled", "path", cfg.Path, "queue_size", cfg.QueueSize)
	return w, nil
}

// Record queues event for writing.
func (w *Writer) Record(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.queue <- event:
	default:
		w.dropped++
		w.logger.Warn("Journal queue full, dropping event", "event_id", event.ID, "dropped", w.dropped)
	}
}

// Close drains the queue and closes the file.
func (w *Writer) Close() error {
	var err error
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()

		w.wg.Wait()
		err = w.file.Close()
	})
	return err
}

func (w *Writer) run() {
	defer w.wg.Done()
	enc := json.NewEncoder(w.file)
	enc.SetEscapeHTML(false)
	for event := range w.queue {
		if err := enc.Encode(event); err != nil {
			w.logger.Warn("Failed to write journal event", "event_id", event.ID, "error", err)
		}
	}
}
