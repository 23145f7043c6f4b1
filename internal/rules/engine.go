package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const defaultLoopLimit = 30

type compiledRule interface {
	Apply(input string) (output string, changed bool)
}

// RuleParser parses one line into a compiled rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (compiledRule, error)
}

// Engine rewrites transcripts with substitutions loaded from a rules file,
// typically to correct words the recognizer keeps mishearing.
type Engine struct {
	fs        afero.Fs
	path      string
	parsers   []RuleParser
	loopLimit int

	mu    sync.RWMutex
	rules []compiledRule
}

// NewEngine loads and compiles rules from a file using built-in parsers.
// A missing file yields an engine that leaves text unchanged.
func NewEngine(fs afero.Fs, path string, loopLimit int) (*Engine, error) {
	return NewEngineWithParsers(fs, path, loopLimit, defaultRuleParsers())
}

// NewEngineWithParsers allows parser extension without engine changes.
func NewEngineWithParsers(fs afero.Fs, path string, loopLimit int, parsers []RuleParser) (*Engine, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if loopLimit <= 0 {
		loopLimit = defaultLoopLimit
	}
	if len(parsers) == 0 {
		parsers = defaultRuleParsers()
	}

	engine := &Engine{
		fs:        fs,
		path:      strings.TrimSpace(path),
		parsers:   parsers,
		loopLimit: loopLimit,
	}
	if err := engine.Reload(); err != nil {
		return nil, err
	}
	return engine, nil
}

// Path returns the rules file the engine reads from.
func (e *Engine) Path() string {
	return e.path
}

// Reload re-reads the rules file. On error the current rules stay active.
func (e *Engine) Reload() error {
	if e.path == "" {
		return nil
	}

	contents, err := afero.ReadFile(e.fs, e.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			e.swap(nil)
			return nil
		}
		return fmt.Errorf("failed to read rules file %q: %w", e.path, err)
	}

	rules, err := parseRules(string(contents), e.parsers)
	if err != nil {
		return fmt.Errorf("failed to parse rules file %q: %w", e.path, err)
	}
	e.swap(rules)
	return nil
}

// Len reports how many rules are loaded.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

func (e *Engine) swap(rules []compiledRule) {
	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
}

// Apply rewrites text until no rule changes it or the loop limit is hit.
func (e *Engine) Apply(text string) (string, error) {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	if len(rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, rule := range rules {
			next, ruleChanged := rule.Apply(result)
			if ruleChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			return result, nil
		}
	}

	return result, nil
}
