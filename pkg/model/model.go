// Package model folds parsed dependency rules into a merged, ordered model.
//
// A [Model] holds one [Entry] per distinct target. Targets keep the position
// of their first appearance across all input; every later appearance only
// contributes prerequisites that the entry has not seen yet. Prerequisites
// likewise keep first-appearance order and are never duplicated.
//
// Build a model with a [Builder], feeding rules in input order:
//
//	b := model.NewBuilder()
//	for _, rules := range perSource {
//	    b.AddAll(rules)
//	}
//	m := b.Build()
//
// A Model is immutable and safe for concurrent readers.
package model

import "github.com/matzehuels/dep2j/pkg/depfile"

// Entry is one target with its unique prerequisites in first-seen order.
type Entry struct {
	Target        string   `json:"target"`
	Prerequisites []string `json:"prerequisites"`
}

// entry is the mutable form of Entry used while merging.
type entry struct {
	target  string
	prereqs []string
	seen    map[string]struct{}
}

// Model is the merged, ordered collection of entries.
type Model struct {
	entries []Entry
	index   map[string]int
	rules   int
}

// Len returns the number of distinct targets.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// RuleCount returns how many raw rules were folded into the model.
func (m *Model) RuleCount() int {
	if m == nil {
		return 0
	}
	return m.rules
}

// Entries returns a copy of the entries in model order.
func (m *Model) Entries() []Entry {
	if m == nil {
		return []Entry{}
	}
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = Entry{Target: e.Target, Prerequisites: cloneStrings(e.Prerequisites)}
	}
	return out
}

// Targets returns the target names in model order.
func (m *Model) Targets() []string {
	if m == nil {
		return []string{}
	}
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Target
	}
	return out
}

// Lookup returns the entry for target.
func (m *Model) Lookup(target string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	i, ok := m.index[target]
	if !ok {
		return Entry{}, false
	}
	e := m.entries[i]
	return Entry{Target: e.Target, Prerequisites: cloneStrings(e.Prerequisites)}, true
}

// Each calls fn for every entry in model order without copying. fn must not
// modify the prerequisite slice. Iteration stops when fn returns false.
func (m *Model) Each(fn func(Entry) bool) {
	if m == nil {
		return
	}
	for _, e := range m.entries {
		if !fn(e) {
			return
		}
	}
}

// Builder accumulates rules into a Model. The zero value is not usable;
// create one with NewBuilder. A Builder is not safe for concurrent use and
// must not be used after Build.
type Builder struct {
	entries []*entry
	index   map[string]int
	rules   int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Add folds one rule into the model under construction.
func (b *Builder) Add(rule depfile.RawRule) {
	b.rules++

	i, ok := b.index[rule.Target]
	if !ok {
		i = len(b.entries)
		b.index[rule.Target] = i
		b.entries = append(b.entries, &entry{
			target:  rule.Target,
			prereqs: make([]string, 0, len(rule.Prerequisites)),
			seen:    make(map[string]struct{}, 2*len(rule.Prerequisites)),
		})
	}

	e := b.entries[i]
	for _, p := range rule.Prerequisites {
		if _, dup := e.seen[p]; dup {
			continue
		}
		e.seen[p] = struct{}{}
		e.prereqs = append(e.prereqs, p)
	}
}

// AddAll folds rules in order.
func (b *Builder) AddAll(rules []depfile.RawRule) {
	for _, r := range rules {
		b.Add(r)
	}
}

// Len returns the number of distinct targets seen so far.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build finalizes the model. The seen sets are released.
func (b *Builder) Build() *Model {
	m := &Model{
		entries: make([]Entry, len(b.entries)),
		index:   b.index,
		rules:   b.rules,
	}
	for i, e := range b.entries {
		m.entries[i] = Entry{Target: e.target, Prerequisites: e.prereqs}
	}
	b.entries = nil
	b.index = nil
	return m
}

// FromEntries builds a model from already merged entries, merging again so
// that repeated targets and prerequisites collapse the same way parsed rules do.
func FromEntries(entries []Entry) *Model {
	b := NewBuilder()
	for _, e := range entries {
		b.Add(depfile.RawRule{Target: e.Target, Prerequisites: e.Prerequisites})
	}
	return b.Build()
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
