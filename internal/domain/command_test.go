package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"cd", CurrentDir{}},
		{"cd.", CurrentDir{}},
		{"cd .", CurrentDir{}},
		{"cd..", ParentDir{}},
		{"cd ..", ParentDir{}},
		{"cd /tmp", ChangeDir{Path: "/tmp"}},
		{"cd  my dir ", ChangeDir{Path: "my dir"}},
		{"dir /B", List{}},
		{"dir /b", List{}},
		{"ls", List{}},
		{"cd_index 2", NavigateIndex{Index: 2}},
		{"cd_index two", Shell{Line: "cd_index two"}},
		{"delete_file_index 0", DeleteIndex{Index: 0}},
		{"redo_deletion", UndoDelete{}},
		{"undo_deletion", UndoDelete{}},
		{"echo.>notes.txt", CreateFile{Name: "notes.txt"}},
		{"echo.>", CreateFile{Name: DefaultFileName}},
		{"stop_listening", StopListening{}},
		{"mkdir reports", Shell{Line: "mkdir reports"}},
		{"ls -la", Shell{Line: "ls -la"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseCommand(tt.line)); diff != "" {
				t.Errorf("ParseCommand(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	cmds := []Command{
		ChangeDir{Path: "/srv"},
		CurrentDir{},
		ParentDir{},
		NavigateIndex{Index: 3},
		List{},
		DeleteIndex{Index: 1},
		UndoDelete{},
		CreateFile{Name: "a.txt"},
		StopListening{},
		Shell{Line: "mkdir x"},
	}
	for _, c := range cmds {
		if diff := cmp.Diff(c, ParseCommand(c.String())); diff != "" {
			t.Errorf("ParseCommand(%q) mismatch (-want +got):\n%s", c.String(), diff)
		}
	}
}

func TestDefaultPatterns(t *testing.T) {
	got := DefaultPatterns()
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0].Pattern != "list directory" || got[9].Template != "stop_listening" {
		t.Errorf("unexpected order: first %+v, last %+v", got[0], got[9])
	}
	got[0].Template = "changed"
	if DefaultPatterns()[0].Template != "dir /B" {
		t.Error("DefaultPatterns must return a fresh slice")
	}
}

func TestErrors(t *testing.T) {
	noMatch := fmt.Errorf("resolve: %w", &NoMatchError{Text: "sing"})
	if !errors.Is(noMatch, ErrNoMatch) {
		t.Error("NoMatchError should match ErrNoMatch")
	}
	if got := (&NoMatchError{Text: "sing"}).Error(); got != "No mapping found for: 'sing'" {
		t.Errorf("NoMatchError = %q", got)
	}

	if got := (&IndexOutOfRangeError{Kind: "Index", Index: 5, Len: 2}).Error(); got != "Index 5 out of range (valid range: 1-2)" {
		t.Errorf("IndexOutOfRangeError = %q", got)
	}

	cause := errors.New("boom")
	storage := &StorageError{Path: "commands.json", Err: cause}
	if !errors.Is(storage, cause) {
		t.Error("StorageError should unwrap to its cause")
	}

	host := &HostExecutionError{Command: "false", ExitCode: 1, Err: cause}
	if got := host.Error(); got != "command 'false' returned non-zero exit status 1" {
		t.Errorf("HostExecutionError = %q", got)
	}
}

func TestRecentCommands(t *testing.T) {
	s := NewSessionState("/tmp")
	for _, c := range []string{"ls", "cd ..", "cd ."} {
		s.RecordCommand(c)
	}
	tests := []struct {
		n    int
		want []string
	}{
		{0, nil},
		{2, []string{"cd ..", "cd ."}},
		{5, []string{"ls", "cd ..", "cd ."}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, s.RecentCommands(tt.n)); diff != "" {
			t.Errorf("RecentCommands(%d) mismatch (-want +got):\n%s", tt.n, diff)
		}
	}
}
