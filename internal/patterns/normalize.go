package patterns

import (
	"regexp"
	"strconv"
)

type numberRule struct {
	re    *regexp.Regexp
	digit string
}

// numberRules rewrite "move to <word>" only; number words elsewhere are left alone.
var numberRules = func() []numberRule {
	words := []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	rules := make([]numberRule, len(words))
	for i, w := range words {
		rules[i] = numberRule{
			re:    regexp.MustCompile(`(?i)\b(move to) ` + w + `\b`),
			digit: strconv.Itoa(i),
		}
	}
	return rules
}()

// Normalize rewrites "move to <number word>" into "move to <digit>" for zero
// through ten, case-insensitively. Normalizing twice is the same as once.
func Normalize(text string) string {
	for _, r := range numberRules {
		text = r.re.ReplaceAllString(text, "${1} "+r.digit)
	}
	return text
}
