// Package dispatch delivers actions to registered handlers.
//
// Every handler registered at the time of a Dispatch call receives its own
// copy of the action. A handler that returns an error or panics is recorded
// as failed in the Report; the remaining handlers still run.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/solatis/alertkeeper/internal/types"
)

// Handler consumes actions.
type Handler interface {
	ID() string
	Handle(ctx context.Context, action types.Action) error
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc struct {
	HandlerID string
	Fn        func(ctx context.Context, action types.Action) error
}

func (h HandlerFunc) ID() string { return h.HandlerID }

func (h HandlerFunc) Handle(ctx context.Context, action types.Action) error {
	return h.Fn(ctx, action)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithParallelism runs up to n handlers concurrently. n <= 1 is sequential.
func WithParallelism(n int) Option {
	return func(d *Dispatcher) { d.parallelism = n }
}

// WithLogger sets the logger used to report handler failures.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	mu          sync.RWMutex
	handlers    []Handler
	parallelism int
	logger      zerolog.Logger
}

// New returns a dispatcher with no handlers.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register appends h to the handler list.
func (d *Dispatcher) Register(h Handler) error {
	if h == nil {
		return types.ErrNilHandler
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.handlers {
		if existing.ID() == h.ID() {
			return fmt.Errorf("%w: %s", types.ErrDuplicateHandlerID, h.ID())
		}
	}
	d.handlers = append(d.handlers, h)
	return nil
}

// Unregister removes the handler with the given id.
func (d *Dispatcher) Unregister(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, h := range d.handlers {
		if h.ID() == id {
			d.handlers = append(d.handlers[:i:i], d.handlers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", types.ErrHandlerNotFound, id)
}

// Handlers returns the registered handler ids in registration order.
func (d *Dispatcher) Handlers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, len(d.handlers))
	for i, h := range d.handlers {
		ids[i] = h.ID()
	}
	return ids
}

// Dispatch delivers action to every handler and reports each outcome.
// The report lists handlers in registration order in both modes.
//
// The handler list is snapshotted under the read lock, so handlers may
// register or unregister handlers without deadlocking; such changes apply
// from the next Dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, action types.Action) Report {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	results := make([]Result, len(handlers))
	if len(handlers) == 0 {
		return Report{Results: results}
	}

	if d.parallelism <= 1 {
		for i, h := range handlers {
			results[i] = d.deliver(ctx, h, action)
		}
		return Report{Results: results}
	}

	p := pool.New().WithMaxGoroutines(d.parallelism)
	for i, h := range handlers {
		p.Go(func() {
			results[i] = d.deliver(ctx, h, action)
		})
	}
	p.Wait()

	return Report{Results: results}
}

// deliver runs one handler inside its own error boundary.
func (d *Dispatcher) deliver(ctx context.Context, h Handler, action types.Action) (res Result) {
	res.HandlerID = h.ID()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("handler_id", res.HandlerID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("handler panic recovered")
			res.Err = &HandlerFailure{
				HandlerID: res.HandlerID,
				Reason:    fmt.Errorf("%w: %v", types.ErrHandlerPanic, r),
			}
		}
	}()

	if err := h.Handle(ctx, action.Clone()); err != nil {
		d.logger.Warn().
			Err(err).
			Str("handler_id", res.HandlerID).
			Str("rule_id", string(action.RuleID)).
			Msg("handler failed")
		res.Err = &HandlerFailure{HandlerID: res.HandlerID, Reason: err}
	}
	return res
}
