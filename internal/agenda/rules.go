package agenda

import (
	"errors"
	"fmt"
	"regexp"

	"agendacal/internal/config"
)

// customRule is a compiled config.CustomEvent.
type customRule struct {
	keyword string
	re      *regexp.Regexp
	symbol  string
	color   string
}

// compileCustomEvents compiles keywords case-insensitively, keeping order.
// Entries whose keyword does not compile are dropped and reported.
func compileCustomEvents(list []config.CustomEvent) ([]customRule, error) {
	rules := make([]customRule, 0, len(list))
	var errs []error
	for _, ce := range list {
		re, err := regexp.Compile("(?i)" + ce.Keyword)
		if err != nil {
			errs = append(errs, fmt.Errorf("agenda: invalid custom event keyword %q: %w", ce.Keyword, err))
			continue
		}
		rules = append(rules, customRule{keyword: ce.Keyword, re: re, symbol: ce.Symbol, color: ce.Color})
	}
	return rules, errors.Join(errs...)
}
