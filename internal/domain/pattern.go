package domain

// PatternEntry maps a trigger pattern to a command template. Pattern is either
// a literal phrase or an expression with at most one capture group.
type PatternEntry struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Template string `json:"template" yaml:"template"`
}

// DefaultPatterns returns the table seeded when no persisted table exists.
func DefaultPatterns() []PatternEntry {
	return []PatternEntry{
		{Pattern: "list directory", Template: "dir /B"},
		{Pattern: "list files", Template: "dir /B"},
		{Pattern: "move to ([0-9]+)", Template: ActionNavigateIndex},
		{Pattern: "create folder (.*)", Template: "mkdir"},
		{Pattern: "create folder", Template: "mkdir default"},
		{Pattern: "create file (.*)", Template: ActionCreateFile},
		{Pattern: "create file", Template: ActionCreateFile + DefaultFileName},
		{Pattern: "back", Template: "cd .."},
		{Pattern: "home", Template: "cd ."},
		{Pattern: "stop", Template: ActionStopListening},
	}
}
