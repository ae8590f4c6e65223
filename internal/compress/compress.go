// Package compress assigns short, collision-free names to class tokens.
package compress

import (
	"sync"
)

// Reserved names are never generated
var Reserved = []string{"ad", "ads", "adv"}

// Exemptions decides which tokens keep their own name
type Exemptions interface {
	Contains(name string) bool
}

// State is one build context's CompressionState. The token to name mapping
// is a bijection on its domain, and every generated name maps to itself.
type State struct {
	mu       sync.Mutex
	counter  int
	nameOf   map[string]string
	exempt   Exemptions
	reserved map[string]bool
	claimed  map[string]bool // Class names in use that no token may be renamed to
}

// New creates an empty state. exempt may be nil.
func New(exempt Exemptions) *State {
	reserved := make(map[string]bool, len(Reserved))
	for _, r := range Reserved {
		reserved[r] = true
	}
	return &State{
		nameOf:   make(map[string]string),
		exempt:   exempt,
		reserved: reserved,
		claimed:  make(map[string]bool),
	}
}

// Compress returns the compressed name of token, assigning the next free
// name on first use. Safelisted tokens map to themselves.
func (s *State) Compress(token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name, ok := s.nameOf[token]; ok {
		return name
	}

	if s.isExempt(token) {
		s.nameOf[token] = token
		return token
	}

	name := s.nextName()
	s.nameOf[token] = name
	s.nameOf[name] = name
	return name
}

// Reserve marks class names that appear verbatim in pages so that no other
// token is renamed to them. Tokens already mapped are unaffected.
func (s *State) Reserve(tokens ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tok := range tokens {
		if _, ok := s.nameOf[tok]; !ok {
			s.claimed[tok] = true
		}
	}
}

// Lookup returns the name assigned to token without assigning one
func (s *State) Lookup(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.nameOf[token]
	return name, ok
}

// Len returns the number of mapped tokens, generated self-mappings included
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nameOf)
}

// Counter returns the numeral of the last generated name
func (s *State) Counter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Mapping returns a copy of the token to name mapping
func (s *State) Mapping() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.nameOf))
	for k, v := range s.nameOf {
		out[k] = v
	}
	return out
}

func (s *State) isExempt(name string) bool {
	return s.exempt != nil && s.exempt.Contains(name)
}

// nextName advances the counter past reserved, claimed, taken and safelisted
// names
func (s *State) nextName() string {
	for {
		s.counter++
		name := Name(s.counter)
		if s.reserved[name] || s.claimed[name] || s.isExempt(name) {
			continue
		}
		if _, taken := s.nameOf[name]; taken {
			continue
		}
		return name
	}
}

// Name renders n >= 1 in bijective base-26: 1 is "a", 26 is "z", 27 is "aa"
func Name(n int) string {
	if n < 1 {
		return ""
	}

	var buf [16]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('a' + n%26)
		n /= 26
	}
	return string(buf[i:])
}
