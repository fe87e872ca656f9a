package escalation

import (
	"strings"

	"github.com/elliotchance/pie/v2"
)

// Keywords that route a turn to a human agent. Matched as lower-case substrings.
var Keywords = []string{
	"unacceptable",
	"human now",
	"escalate immediately",
	"ridiculous",
	"not helping",
	"ceo",
	"manager",
	"supervisor",
	"complaint",
	"urgent",
	"cancel account",
	"refund",
	"quit company",
	"frustrated",
	"angry",
	"disappointed",
	"waiting forever",
}

// Detect reports whether the user text asks for a human.
func Detect(text string) bool {
	return Match(text) != ""
}

// Match returns the first keyword found in text, or "".
func Match(text string) string {
	lowered := strings.ToLower(text)

	index := pie.FindFirstUsing(Keywords, func(keyword string) bool {
		return strings.Contains(lowered, keyword)
	})
	if index < 0 {
		return ""
	}

	return Keywords[index]
}
