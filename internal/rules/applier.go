package rules

import (
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/proclog"
)

// Applier applies a store's rules to one record. Constructed per
// transformation via Store.Applier so every record owns a fresh log while the
// rule list itself is shared read-only.
type Applier struct {
	rules []Rule
}

// Applier returns a fresh applier borrowing the store's rules.
func (s *Store) Applier() *Applier {
	return &Applier{rules: s.rules}
}

// Apply evaluates every rule against rec and writes the assignments of the
// matching ones into a copy, returning it with the phase log fragment.
//
// Conditions are evaluated against the pre-pass snapshot, never against the
// accumulating patched copy: rules are order-independent declarations and do
// not see each other's effects within one pass. On the assignment side, rule
// order does matter: a later rule overwrites an earlier one on key collision.
func (a *Applier) Apply(rec *metadata.Record) (*metadata.Record, *proclog.Log) {
	patched := rec.Clone()
	log := proclog.New()

	for _, rule := range a.rules {
		if !rule.When.Evaluate(rec) {
			continue
		}
		for _, field := range rule.Then.Keys() {
			value := rule.Then.Value(field)
			patched.Set(field, value)
			log.AddAppliedPatch(field, value, rule.RawWhen)
		}
	}
	return patched, log
}
