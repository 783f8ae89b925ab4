package domain

import (
	"io/fs"
	"time"
)

// DeletedFile remembers the last deletion for single-level undo.
type DeletedFile struct {
	Path       string
	Content    []byte
	HasContent bool
	Mode       fs.FileMode
	DeletedAt  time.Time
}

// SessionState holds the cross-command state of one execution engine.
// It is not persisted and not safe for concurrent use on its own.
type SessionState struct {
	WorkDir string

	DirectoryListing []string
	FileListing      []string
	ListingDir       string

	History     []string
	LastDeleted *DeletedFile
}

// NewSessionState creates an empty session rooted at workDir.
func NewSessionState(workDir string) *SessionState {
	return &SessionState{WorkDir: workDir}
}

// RecordCommand appends a concrete command to the history.
func (s *SessionState) RecordCommand(cmd string) {
	s.History = append(s.History, cmd)
}

// RecentCommands returns the last n commands from history.
func (s *SessionState) RecentCommands(n int) []string {
	if n <= 0 {
		return nil
	}
	if n >= len(s.History) {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
