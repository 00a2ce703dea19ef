// Package engine ties classification and dispatch together.
//
// ProcessAlert evaluates one record against the rule set and, when a rule
// matches, dispatches the resulting action. It never returns an error:
// invalid input and unclassifiable records are outcomes, and handler
// failures are carried in the dispatch report.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/solatis/alertkeeper/internal/dispatch"
	"github.com/solatis/alertkeeper/internal/metrics"
	"github.com/solatis/alertkeeper/internal/rules"
	"github.com/solatis/alertkeeper/internal/types"
)

// Evaluator classifies records. *rules.RuleSet implements it.
type Evaluator interface {
	Evaluate(rec types.Record) rules.MatchResult
}

// Sender delivers actions. *dispatch.Dispatcher implements it.
type Sender interface {
	Dispatch(ctx context.Context, action types.Action) dispatch.Report
}

// Kind is the category of an Outcome. The zero Kind is not a valid outcome.
type Kind int

const (
	// Rejected: the record was invalid; no rule was consulted.
	Rejected Kind = iota + 1
	// Unmatched: the record was valid but no rule applied.
	Unmatched
	// Dispatched: a rule matched and every handler was invoked.
	Dispatched
)

func (k Kind) String() string {
	switch k {
	case Rejected:
		return "rejected"
	case Unmatched:
		return "unmatched"
	case Dispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, c := range []Kind{Rejected, Unmatched, Dispatched} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", text)
}

// Outcome is the result of processing one record.
// Action and Report are zero unless Kind is Dispatched.
type Outcome struct {
	Kind   Kind
	Action types.Action
	Report dispatch.Report
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics the engine records into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine is safe for concurrent use if its Evaluator and Sender are.
type Engine struct {
	rules   Evaluator
	sender  Sender
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New returns an engine over the given rule set and dispatcher.
func New(rules Evaluator, sender Sender, opts ...Option) *Engine {
	e := &Engine{
		rules:  rules,
		sender: sender,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessAlert classifies rec and dispatches the resulting action.
func (e *Engine) ProcessAlert(ctx context.Context, rec types.Record) Outcome {
	start := time.Now()
	outcome := e.process(ctx, rec)
	e.observe(rec, outcome, time.Since(start))
	return outcome
}

func (e *Engine) process(ctx context.Context, rec types.Record) Outcome {
	result := e.rules.Evaluate(rec)
	if !result.Matched {
		if result.Reason == rules.ReasonInvalidRecord {
			return Outcome{Kind: Rejected}
		}
		return Outcome{Kind: Unmatched}
	}

	if rec.ID != "" {
		ctx = types.ContextWithRecordID(ctx, rec.ID)
	}
	report := e.sender.Dispatch(ctx, result.Action)
	return Outcome{Kind: Dispatched, Action: result.Action, Report: report}
}

func (e *Engine) observe(rec types.Record, outcome Outcome, elapsed time.Duration) {
	log := e.logger.With().
		Str("record_id", string(rec.ID)).
		Str("category", string(rec.Category)).
		Str("outcome", outcome.Kind.String()).
		Logger()

	switch outcome.Kind {
	case Rejected:
		log.Debug().Msg("record rejected as invalid")
	case Unmatched:
		log.Debug().Msg("no rule matched record")
	case Dispatched:
		ev := log.Info()
		if !outcome.Report.OK() {
			ev = log.Warn().Err(outcome.Report.Err())
		}
		ev.Str("rule_id", string(outcome.Action.RuleID)).
			Str("message_key", outcome.Action.MessageKey).
			Stringer("alert_level", outcome.Action.Level).
			Int("handlers", len(outcome.Report.Results)).
			Int("failed", len(outcome.Report.Failed())).
			Dur("elapsed", elapsed).
			Msg("alert dispatched")
	}

	if e.metrics == nil {
		return
	}
	e.metrics.Outcomes.WithLabelValues(outcome.Kind.String()).Inc()
	e.metrics.ProcessDuration.Observe(elapsed.Seconds())
	if outcome.Kind != Dispatched {
		return
	}
	e.metrics.RuleMatches.WithLabelValues(string(outcome.Action.RuleID), outcome.Action.MessageKey).Inc()
	for _, res := range outcome.Report.Results {
		status := "ok"
		if !res.OK() {
			status = "failed"
		}
		e.metrics.HandlerDeliveries.WithLabelValues(res.HandlerID, status).Inc()
	}
}
