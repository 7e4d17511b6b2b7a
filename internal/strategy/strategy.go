// Package strategy provides the strategy library, keyword-based strategy
// selection and action plan synthesis.
package strategy

import (
	"strings"
)

// Strategy is a reusable template of actions and evaluation criteria.
type Strategy struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Keywords   []string `json:"keywords"`
	Actions    []string `json:"actions"`
	Evaluation string   `json:"evaluation"`
	Focus      string   `json:"focus"`
}

// Matches reports whether any keyword appears in the lower-cased description.
// A strategy without keywords never matches; it can only be a fallback.
func (s Strategy) Matches(lowered string) bool {
	for _, kw := range s.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Library is an ordered, immutable set of strategies plus a fallback.
// Earlier strategies win ties.
type Library struct {
	strategies []Strategy
	fallback   Strategy
}

// NewLibrary compiles an ordered library. Keywords are lower-cased once here.
func NewLibrary(fallback Strategy, strategies ...Strategy) *Library {
	compiled := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		compiled = append(compiled, compile(s))
	}
	return &Library{
		strategies: compiled,
		fallback:   compile(fallback),
	}
}

func compile(s Strategy) Strategy {
	keywords := make([]string, 0, len(s.Keywords))
	for _, kw := range s.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	s.Keywords = keywords
	s.Actions = append([]string(nil), s.Actions...)
	return s
}

// Select returns the first strategy whose keywords appear in the description,
// or the fallback. Always returns a strategy.
func (l *Library) Select(description string) Strategy {
	lowered := strings.ToLower(description)
	for _, s := range l.strategies {
		if s.Matches(lowered) {
			return s
		}
	}
	return l.fallback
}

// Get returns the strategy with the given ID.
func (l *Library) Get(id string) (Strategy, bool) {
	if l.fallback.ID == id {
		return l.fallback, true
	}
	for _, s := range l.strategies {
		if s.ID == id {
			return s, true
		}
	}
	return Strategy{}, false
}

// All returns the strategies in declaration order, fallback last.
func (l *Library) All() []Strategy {
	out := make([]Strategy, 0, len(l.strategies)+1)
	out = append(out, l.strategies...)
	return append(out, l.fallback)
}
