package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hubmapconsortium/reharmonize-legacy-metadata/internal/metadata"
)

// LoadError reports a structural problem in a rule file. Load errors are
// fatal for the whole load call: curators must fix the configuration before
// any record is touched.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("patch rules %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Rule is one loaded conditional patch: a compiled condition, the raw when
// clause kept verbatim for the audit trail, and the ordered then assignments.
type Rule struct {
	When    Condition
	RawWhen map[string]any
	Then    *metadata.Record
}

// Store holds patch rules in load order. It is immutable once loading is
// done; transformations borrow it through per-record Applier values.
type Store struct {
	rules []Rule
	log   *zap.Logger
}

// NewStore returns an empty rule store. logger may be nil.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{log: logger}
}

// Len returns the number of loaded rules.
func (s *Store) Len() int { return len(s.rules) }

// Rules returns the loaded rules in load order.
func (s *Store) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// LoadDir loads every *.json file under dir recursively, in lexical path
// order so repeated runs see the same rule order. A directory without rule
// files is fine.
func (s *Store) LoadDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &LoadError{File: dir, Err: fmt.Errorf("directory not found: %w", err)}
	}
	if !info.IsDir() {
		return &LoadError{File: dir, Err: fmt.Errorf("not a directory")}
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return &LoadError{File: dir, Err: err}
	}
	sort.Strings(files)

	for _, file := range files {
		if err := s.LoadFile(file); err != nil {
			return err
		}
	}
	s.log.Debug("loaded patch rules", zap.String("dir", dir), zap.Int("rules", len(s.rules)))
	return nil
}

// LoadFile loads and validates rules from a single JSON file. The file must
// contain an array of {when, then} objects; any structural violation aborts
// the load with the file and rule index in the message.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{File: path, Err: err}
	}

	var raw []json.RawMessage
	if err := decodeStrict(data, &raw); err != nil {
		return &LoadError{File: path, Err: fmt.Errorf("file must contain a JSON array: %w", err)}
	}

	for i, entry := range raw {
		rule, err := parseRule(entry, i)
		if err != nil {
			return &LoadError{File: path, Err: err}
		}
		s.rules = append(s.rules, rule)
	}
	s.log.Debug("loaded patch rule file", zap.String("file", path), zap.Int("rules", len(raw)))
	return nil
}

// parseRule validates one rule object and compiles its condition.
func parseRule(entry json.RawMessage, index int) (Rule, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(entry, &obj); err != nil {
		return Rule{}, fmt.Errorf("rule %d must be an object: %w", index, err)
	}

	whenRaw, okWhen := obj["when"]
	thenRaw, okThen := obj["then"]
	if !okWhen || !okThen {
		return Rule{}, fmt.Errorf("rule %d must have 'when' and 'then' keys", index)
	}

	var when map[string]any
	if err := decodeStrict(whenRaw, &when); err != nil {
		return Rule{}, fmt.Errorf("rule %d: 'when' must be an object: %w", index, err)
	}
	if when == nil {
		when = make(map[string]any)
	}

	then := metadata.NewRecord()
	if err := json.Unmarshal(thenRaw, then); err != nil {
		return Rule{}, fmt.Errorf("rule %d: 'then' must be an object: %w", index, err)
	}

	cond, err := compileWhen(when, fmt.Sprintf("rule %d", index))
	if err != nil {
		return Rule{}, err
	}

	return Rule{When: cond, RawWhen: when, Then: then}, nil
}

// decodeStrict decodes JSON with number fidelity preserved, so condition
// values compare against record values type-sensitively.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
