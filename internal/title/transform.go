// Package title rewrites event titles for display: configured find/replace
// rules first, then wrapping or truncation.
package title

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"agendacal/internal/config"
)

// Markers inserted by Shorten. The presentation side renders HTML.
const (
	LineBreak = "<br>"
	Ellipsis  = "&hellip;"
)

// defaultWrapLength is used when wrapping is on but no length is set.
const defaultWrapLength = 25

// Kind tells how a Rule matches.
type Kind int

const (
	Literal Kind = iota
	Pattern
)

// delimited matches "/pattern/flags" search keys.
var delimited = regexp.MustCompile(`^/(.+)/([gim]*)$`)

// Rule is a compiled title replacement. Literal rules replace the first
// occurrence of a substring; Pattern rules replace the first match, or
// every match when the g flag was given.
type Rule struct {
	Kind    Kind
	Source  string
	literal string
	re      *regexp.Regexp
	global  bool
	replace string
}

// Compile turns configured pairs into rules, keeping their order. Pairs
// whose pattern does not compile are left out and reported in the
// returned error; the remaining rules are still usable.
func Compile(pairs config.TitleReplace) ([]Rule, error) {
	rules := make([]Rule, 0, len(pairs))
	var errs []error
	for _, p := range pairs {
		r, err := compileOne(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, r)
	}
	return rules, errors.Join(errs...)
}

func compileOne(p config.Replacement) (Rule, error) {
	m := delimited.FindStringSubmatch(p.Search)
	if m == nil {
		return Rule{Kind: Literal, Source: p.Search, literal: p.Search, replace: p.Replace}, nil
	}

	expr, flags := m[1], m[2]
	prefix := ""
	if strings.Contains(flags, "i") {
		prefix += "i"
	}
	if strings.Contains(flags, "m") {
		prefix += "m"
	}
	if prefix != "" {
		expr = "(?" + prefix + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("title: invalid replace pattern %q: %w", p.Search, err)
	}
	return Rule{
		Kind:    Pattern,
		Source:  p.Search,
		re:      re,
		global:  strings.Contains(flags, "g"),
		replace: expandTemplate(p.Replace),
	}, nil
}

// Apply runs the rule once over s.
func (r Rule) Apply(s string) string {
	switch r.Kind {
	case Pattern:
		if r.global {
			return r.re.ReplaceAllString(s, r.replace)
		}
		loc := r.re.FindStringSubmatchIndex(s)
		if loc == nil {
			return s
		}
		dst := r.re.ExpandString(nil, r.replace, s, loc)
		return s[:loc[0]] + string(dst) + s[loc[1]:]
	default:
		if r.literal == "" {
			return s
		}
		return strings.Replace(s, r.literal, r.replace, 1)
	}
}

// expandTemplate rewrites "$&" and "$n" group references into the
// "${0}" / "${n}" form understood by regexp.Expand, so that "$1x" keeps
// meaning group 1 followed by "x".
func expandTemplate(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 2
			if j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
		default:
			b.WriteString("$$")
		}
	}
	return b.String()
}

// Transform applies rules in order and then shortens the result.
func Transform(s string, rules []Rule, wrap bool, maxLength int) string {
	for _, r := range rules {
		s = r.Apply(s)
	}
	return Shorten(s, maxLength, wrap)
}

// Shorten either wraps s into lines shorter than maxLength-1 characters,
// joined by LineBreak, or cuts it at maxLength and appends Ellipsis.
// Lengths are counted in runes.
func Shorten(s string, maxLength int, wrap bool) string {
	if wrap {
		if maxLength <= 0 {
			maxLength = defaultWrapLength
		}
		return wrapWords(s, maxLength-1)
	}

	if maxLength > 0 && utf8.RuneCountInString(s) > maxLength {
		trimmed := []rune(strings.TrimSpace(s))
		if len(trimmed) > maxLength {
			trimmed = trimmed[:maxLength]
		}
		return string(trimmed) + Ellipsis
	}
	return strings.TrimSpace(s)
}

func wrapWords(s string, limit int) string {
	var lines []string
	cur := ""
	for _, word := range strings.Split(s, " ") {
		if utf8.RuneCountInString(cur)+utf8.RuneCountInString(word) < limit {
			cur += word + " "
			continue
		}
		if cur != "" {
			lines = append(lines, strings.TrimSpace(cur))
			cur = word + " "
			continue
		}
		// A single word longer than the limit gets its own line.
		lines = append(lines, word)
	}
	if strings.TrimSpace(cur) != "" {
		lines = append(lines, strings.TrimSpace(cur))
	}
	return strings.Join(lines, LineBreak)
}
