package dlp

import (
	"fmt"
	"regexp"
	"sort"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Redactor masks personal identifiers in free text, such as the notes on a
// report opened through its share link.
type Redactor struct {
	rules []compiledRule
}

func NewRedactor(cfg RulesConfig) (*Redactor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &Redactor{rules: compiled}, nil
}

// Redact applies every rule in order and returns the masked text with the
// sorted, distinct types that matched.
func (r *Redactor) Redact(text string) (string, []string) {
	if r == nil || text == "" {
		return text, nil
	}
	var found []string
	for _, c := range r.rules {
		if !c.re.MatchString(text) {
			continue
		}
		found = append(found, c.rule.Type)
		text = c.re.ReplaceAllString(text, c.rule.Mask)
	}
	sort.Strings(found)
	return text, dedupe(found)
}

func dedupe(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
