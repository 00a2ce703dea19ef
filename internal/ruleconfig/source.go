package ruleconfig

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/solatis/alertkeeper/internal/metrics"
	"github.com/solatis/alertkeeper/internal/render"
	"github.com/solatis/alertkeeper/internal/rules"
	"github.com/solatis/alertkeeper/internal/types"
)

// Compile turns definitions into rules. Step messages are added to catalog
// when it is non-nil, each entry pointing at the step below it.
func Compile(defs []types.RuleDefinition, catalog *render.Catalog, logger zerolog.Logger) ([]rules.Rule, error) {
	compiled := make([]rules.Rule, 0, len(defs))
	for _, def := range defs {
		r, err := rules.CompileDefinition(def, rules.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, r)
	}
	if catalog != nil {
		registerMessages(defs, catalog)
	}
	return compiled, nil
}

func registerMessages(defs []types.RuleDefinition, catalog *render.Catalog) {
	for _, def := range defs {
		parent := ""
		for _, step := range def.Ladder {
			if step.Message != "" {
				catalog.Set(step.Key, render.Entry{Text: step.Message, Parent: parent})
			}
			parent = step.Key
		}
	}
}

// Option configures a Source.
type Option func(*Source)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Source) { s.metrics = m }
}

// WithCatalog registers step messages in c on every successful reload.
func WithCatalog(c *render.Catalog) Option {
	return func(s *Source) { s.catalog = c }
}

// Source keeps the rules of one path registered in a rule set.
type Source struct {
	path    string
	set     *rules.RuleSet
	catalog *render.Catalog
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu sync.Mutex // serialises reloads
}

func NewSource(path string, set *rules.RuleSet, opts ...Option) *Source {
	s := &Source{path: path, set: set, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name is the rule set source tag for rules loaded from this path.
func (s *Source) Name() string { return "file:" + s.path }

// Path returns the watched file or directory.
func (s *Source) Path() string { return s.path }

// Reload loads, compiles and swaps in the rules under the path. On any
// error the previously registered rules stay active.
func (s *Source) Reload() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.reload()
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		s.metrics.RuleReloads.WithLabelValues(status).Inc()
		s.metrics.RulesLoaded.Set(float64(s.set.Len()))
	}
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("rule reload failed, keeping previous rules")
		return 0, err
	}
	s.logger.Info().Str("path", s.path).Int("rules", n).Msg("rules loaded")
	return n, nil
}

func (s *Source) reload() (int, error) {
	defs, err := Load(s.path)
	if err != nil {
		return 0, err
	}
	compiled, err := Compile(defs, nil, s.logger)
	if err != nil {
		return 0, err
	}
	if err := s.set.Replace(s.Name(), compiled); err != nil {
		return 0, fmt.Errorf("failed to register rules: %w", err)
	}
	if s.catalog != nil {
		registerMessages(defs, s.catalog)
	}
	return len(compiled), nil
}
