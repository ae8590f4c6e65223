// Package safelist holds the class names exempt from compression and from
// purge removal.
package safelist

import (
	"fmt"
	"regexp"
)

// Safelist matches class names by literal value or by regular expression.
// Patterns are used as written; anchor them to match whole names.
type Safelist struct {
	literals map[string]struct{}
	patterns []*regexp.Regexp
}

// New compiles a safelist. A nil *Safelist contains nothing.
func New(literals, patterns []string) (*Safelist, error) {
	s := &Safelist{literals: make(map[string]struct{}, len(literals))}
	for _, l := range literals {
		s.literals[l] = struct{}{}
	}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("safelist pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, re)
	}

	return s, nil
}

// Contains reports whether a class name is exempt
func (s *Safelist) Contains(name string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.literals[name]; ok {
		return true
	}
	for _, re := range s.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Len returns the number of literals and patterns
func (s *Safelist) Len() int {
	if s == nil {
		return 0
	}
	return len(s.literals) + len(s.patterns)
}
