// Package domain contains core domain types for the voice command system.
package domain

import (
	"strconv"
	"strings"
)

// Reserved template values interpreted by the engine rather than the host.
const (
	ActionNavigateIndex = "cd_index"
	ActionDeleteIndex   = "delete_file_index"
	ActionUndoDelete    = "redo_deletion"
	ActionUndoAlias     = "undo_deletion"
	ActionStopListening = "stop_listening"
	ActionCreateFile    = "echo.>"

	// DefaultFileName is used when a create-file command carries no name.
	DefaultFileName = "default.txt"
)

// Command is a concrete, resolved command. The set of implementations is
// closed; the engine switches over all of them.
type Command interface {
	// String renders the canonical concrete command text.
	String() string
	isCommand()
}

// ChangeDir changes the working directory to a literal path.
type ChangeDir struct{ Path string }

// CurrentDir reports the working directory.
type CurrentDir struct{}

// ParentDir moves the working directory to its parent.
type ParentDir struct{}

// NavigateIndex changes into the Index-th (0-based) entry of the last directory listing.
type NavigateIndex struct{ Index int }

// List refreshes and reports the directory and file listings.
type List struct{}

// DeleteIndex deletes the Index-th (0-based) entry of the last file listing.
type DeleteIndex struct{ Index int }

// UndoDelete restores the most recently deleted file.
type UndoDelete struct{}

// CreateFile creates an empty file.
type CreateFile struct{ Name string }

// StopListening is the mapped "stop" action.
type StopListening struct{}

// Shell is forwarded verbatim to the host command interpreter.
type Shell struct{ Line string }

func (c ChangeDir) String() string     { return "cd " + c.Path }
func (CurrentDir) String() string      { return "cd ." }
func (ParentDir) String() string       { return "cd .." }
func (c NavigateIndex) String() string { return ActionNavigateIndex + " " + strconv.Itoa(c.Index) }
func (List) String() string            { return "dir /B" }
func (c DeleteIndex) String() string   { return ActionDeleteIndex + " " + strconv.Itoa(c.Index) }
func (UndoDelete) String() string      { return ActionUndoDelete }
func (c CreateFile) String() string    { return ActionCreateFile + c.Name }
func (StopListening) String() string   { return ActionStopListening }
func (c Shell) String() string         { return c.Line }

func (ChangeDir) isCommand()     {}
func (CurrentDir) isCommand()    {}
func (ParentDir) isCommand()     {}
func (NavigateIndex) isCommand() {}
func (List) isCommand()          {}
func (DeleteIndex) isCommand()   {}
func (UndoDelete) isCommand()    {}
func (CreateFile) isCommand()    {}
func (StopListening) isCommand() {}
func (Shell) isCommand()         {}

// ParseCommand maps concrete command text onto a Command. Text that names no
// built-in action becomes a Shell pass-through. Index actions carry 0-based
// indices; a malformed index yields a Shell command so the host reports it.
func ParseCommand(line string) Command {
	line = strings.TrimSpace(line)

	switch line {
	case "cd", "cd.", "cd .":
		return CurrentDir{}
	case "cd..", "cd ..":
		return ParentDir{}
	case "dir /B", "dir /b", "ls":
		return List{}
	case ActionUndoDelete, ActionUndoAlias:
		return UndoDelete{}
	case ActionStopListening:
		return StopListening{}
	}

	if idx, ok := indexArg(line, ActionNavigateIndex); ok {
		return NavigateIndex{Index: idx}
	}
	if idx, ok := indexArg(line, ActionDeleteIndex); ok {
		return DeleteIndex{Index: idx}
	}
	if rest, ok := strings.CutPrefix(line, ActionCreateFile); ok {
		name := strings.TrimSpace(rest)
		if name == "" {
			name = DefaultFileName
		}
		return CreateFile{Name: name}
	}
	if rest, ok := strings.CutPrefix(line, "cd "); ok {
		return ChangeDir{Path: strings.TrimSpace(rest)}
	}
	return Shell{Line: line}
}

func indexArg(line, action string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != action {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
