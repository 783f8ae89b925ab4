package patterns

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ashureev/shsh-voice/internal/domain"
)

// Resolver maps transcripts onto concrete commands using a Table.
type Resolver struct {
	table  *Table
	logger *slog.Logger
}

// NewResolver creates a resolver over table.
func NewResolver(table *Table, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{table: table, logger: logger}
}

// Resolve normalizes text and returns the command of the first matching
// entry. Exact pattern matches win over expression matches; among
// expressions, table order decides. Failure is always a *domain.NoMatchError.
func (r *Resolver) Resolve(text string) (domain.Command, error) {
	normalized := Normalize(strings.TrimSpace(text))
	entries := r.table.snapshot()

	for _, e := range entries {
		if e.Pattern == normalized {
			r.logger.Debug("Exact pattern match", "text", normalized, "template", e.Template)
			return domain.ParseCommand(e.Template), nil
		}
	}

	for _, e := range entries {
		if e.re == nil {
			continue
		}
		match := e.re.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		r.logger.Debug("Pattern match", "text", normalized, "pattern", e.Pattern, "template", e.Template)

		switch e.Template {
		case domain.ActionNavigateIndex, domain.ActionDeleteIndex:
			idx, ok := positiveIndex(match)
			if !ok {
				return nil, &domain.NoMatchError{Text: text}
			}
			if e.Template == domain.ActionNavigateIndex {
				return domain.NavigateIndex{Index: idx}, nil
			}
			return domain.DeleteIndex{Index: idx}, nil
		}

		if e.re.NumSubexp() == 0 {
			return domain.ParseCommand(e.Template), nil
		}
		return domain.ParseCommand(substitute(e.Template, match[1])), nil
	}

	return nil, &domain.NoMatchError{Text: text}
}

// positiveIndex converts the 1-based capture into a 0-based index.
func positiveIndex(match []string) (int, bool) {
	if len(match) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// substitute places arg after the template's first token when the template
// has more than one token, otherwise after the whole template.
func substitute(template, arg string) string {
	if head, _, found := strings.Cut(template, " "); found {
		return head + " " + arg
	}
	return template + " " + arg
}
