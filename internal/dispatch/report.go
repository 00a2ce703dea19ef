package dispatch

import (
	"fmt"

	"go.uber.org/multierr"
)

// HandlerFailure records why one handler did not complete.
type HandlerFailure struct {
	HandlerID string
	Reason    error
}

func (f *HandlerFailure) Error() string {
	return fmt.Sprintf("handler %s: %v", f.HandlerID, f.Reason)
}

func (f *HandlerFailure) Unwrap() error {
	return f.Reason
}

// Result is the outcome of delivering to one handler. Err is nil on success
// and a *HandlerFailure otherwise.
type Result struct {
	HandlerID string
	Err       error
}

// OK reports whether the handler succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Report lists per-handler results in registration order.
type Report struct {
	Results []Result
}

// OK reports whether every handler succeeded. An empty report is OK.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// Failed returns the failed results in registration order.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err combines every handler failure, or returns nil.
func (r Report) Err() error {
	var err error
	for _, res := range r.Results {
		err = multierr.Append(err, res.Err)
	}
	return err
}
