// Package rulebase keeps the compliance knowledge base: the seeded
// regulatory baseline, rules imported through AI interpretation, and the
// optional semantic search index over them.
package rulebase

import (
	"strings"
	"sync"

	"github.com/sfecr/compliagent/internal/analyst"
)

// Store is an in-memory, ordered rule collection. Newly imported rules
// go to the front so reviewers see them first.
type Store struct {
	mu    sync.RWMutex
	rules []analyst.Rule
}

// NewStore creates a store preloaded with the given rules.
func NewStore(rules []analyst.Rule) *Store {
	s := &Store{rules: make([]analyst.Rule, len(rules))}
	copy(s.rules, rules)
	return s
}

// List returns a copy of all rules in display order.
func (s *Store) List() []analyst.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analyst.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Count returns the number of rules.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Get returns the rule with the given id, or nil.
func (s *Store) Get(id string) *analyst.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.rules {
		if s.rules[i].ID == id {
			r := s.rules[i]
			return &r
		}
	}
	return nil
}

// Filter returns rules whose title or content contains query (case
// insensitive) and whose category matches. CategoryAll or an empty
// category matches everything.
func (s *Store) Filter(query, category string) []analyst.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	out := []analyst.Rule{}
	for _, r := range s.rules {
		if q != "" &&
			!strings.Contains(strings.ToLower(r.Title), q) &&
			!strings.Contains(strings.ToLower(r.Content), q) {
			continue
		}
		if category != "" && category != CategoryAll && r.Category != category {
			continue
		}
		out = append(out, r)
	}
	return out
}

// HasDuplicate reports whether a rule with the same id or the same title
// already exists.
func (s *Store) HasDuplicate(rule analyst.Rule) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		if r.ID == rule.ID || r.Title == rule.Title {
			return true
		}
	}
	return false
}

// Prepend inserts a new rule at the front.
func (s *Store) Prepend(rule analyst.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]analyst.Rule{rule}, s.rules...)
}

// Overwrite removes every rule colliding on id or title, then inserts
// the new rule at the front.
func (s *Store) Overwrite(rule analyst.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rules[:0]
	for _, r := range s.rules {
		if r.ID == rule.ID || r.Title == rule.Title {
			continue
		}
		kept = append(kept, r)
	}
	s.rules = append([]analyst.Rule{rule}, kept...)
}
