// internal/rules/ruleset.go
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/solatis/alertkeeper/internal/types"
)

/*
 * Ordered rule collection.
 *
 * Entries are kept sorted by (priority desc, seq asc) where seq is a
 * monotonically increasing registration counter. Priority is read once at
 * registration, so a rule cannot reorder itself afterwards.
 *
 * Evaluation flow:
 *   1. Invalid record -> ReasonInvalidRecord, no rule consulted
 *   2. Walk entries in order, first Matches() == true wins
 *   3. Winner's BuildAction() called exactly once
 *   4. Nothing matched -> ReasonNoRuleMatched
 *
 * Locking: Evaluate and the read accessors hold the read lock for their
 * whole duration; Add, Remove and Replace hold the write lock.
 *
 * Sources: every entry carries the name of whatever registered it. Add
 * uses SourceAPI; rule file loaders use Replace with their own source so a
 * reload swaps exactly the rules that file produced.
 */

// SourceAPI is the source recorded for rules registered through Add.
const SourceAPI = "api"

type entry struct {
	rule     Rule
	priority int
	seq      uint64
	source   string
}

// Entry describes one registered rule.
type Entry struct {
	ID       types.RuleID `json:"id"`
	Priority int          `json:"priority"`
	Source   string       `json:"source"`
	Rule     Rule         `json:"-"`
}

// RuleSet is safe for concurrent use.
type RuleSet struct {
	mu      sync.RWMutex
	entries []entry
	ids     map[types.RuleID]string // id -> source
	seq     uint64
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{ids: make(map[types.RuleID]string)}
}

// Add registers a rule under SourceAPI.
// Returns ErrDuplicateRuleID if the id is taken; the set is then unchanged.
func (s *RuleSet) Add(rule Rule) error {
	return s.AddFrom(SourceAPI, rule)
}

// AddFrom registers a rule and records source as its origin.
func (s *RuleSet) AddFrom(source string, rule Rule) error {
	if rule == nil {
		return types.ErrNilRule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := rule.ID()
	if _, exists := s.ids[id]; exists {
		return fmt.Errorf("%w: %s", types.ErrDuplicateRuleID, id)
	}

	s.seq++
	e := entry{rule: rule, priority: rule.Priority(), seq: s.seq, source: source}

	// New seq is the largest, so it goes after every entry of equal priority.
	pos := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].priority < e.priority
	})
	s.entries = append(s.entries, entry{})
	copy(s.entries[pos+1:], s.entries[pos:])
	s.entries[pos] = e
	s.ids[id] = source

	return nil
}

// Remove unregisters the rule with the given id.
func (s *RuleSet) Remove(id types.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[id]; !exists {
		return fmt.Errorf("%w: %s", types.ErrRuleNotFound, id)
	}
	for i, e := range s.entries {
		if e.rule.ID() == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	delete(s.ids, id)
	return nil
}

// Replace atomically swaps every rule registered under source for rules.
// If any id is duplicated within rules or collides with a rule from a
// different source, nothing changes and ErrDuplicateRuleID is returned.
func (s *RuleSet) Replace(source string, rules []Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[types.RuleID]struct{}, len(rules))
	for _, r := range rules {
		if r == nil {
			return types.ErrNilRule
		}
		id := r.ID()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", types.ErrDuplicateRuleID, id)
		}
		if owner, exists := s.ids[id]; exists && owner != source {
			return fmt.Errorf("%w: %s (registered by %s)", types.ErrDuplicateRuleID, id, owner)
		}
		seen[id] = struct{}{}
	}

	next := make([]entry, 0, len(s.entries)+len(rules))
	for _, e := range s.entries {
		if e.source == source {
			delete(s.ids, e.rule.ID())
			continue
		}
		next = append(next, e)
	}
	for _, r := range rules {
		s.seq++
		next = append(next, entry{rule: r, priority: r.Priority(), seq: s.seq, source: source})
		s.ids[r.ID()] = source
	}

	sort.SliceStable(next, func(i, j int) bool {
		if next[i].priority != next[j].priority {
			return next[i].priority > next[j].priority
		}
		return next[i].seq < next[j].seq
	})
	s.entries = next

	return nil
}

// Evaluate classifies rec against the registered rules.
func (s *RuleSet) Evaluate(rec types.Record) MatchResult {
	if !rec.Valid {
		return MatchResult{Reason: ReasonInvalidRecord}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.rule.Matches(rec) {
			return MatchResult{Matched: true, Action: e.rule.BuildAction(rec)}
		}
	}
	return MatchResult{Reason: ReasonNoRuleMatched}
}

// Rules returns the registered rules in evaluation order.
func (s *RuleSet) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.rule
	}
	return out
}

// Entries describes the registered rules in evaluation order.
func (s *RuleSet) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry{ID: e.rule.ID(), Priority: e.priority, Source: e.source, Rule: e.rule}
	}
	return out
}

// Len returns the number of registered rules.
func (s *RuleSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
