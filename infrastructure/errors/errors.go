// Package errors provides the fault taxonomy shared by every component of the
// orchestrator. Faults are kinds, not HTTP statuses: callers branch on Kind,
// never on a status code, since this package has no transport dependency.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies a fault category. The orchestrator and its components
// branch on Kind to decide whether to retry locally, requeue, or surface
// the failure to the caller.
type Kind string

const (
	// KindConfig surfaces to the caller; fatal to the affected operation,
	// never to the process.
	KindConfig Kind = "ConfigFault"
	// KindTransient covers network errors, probe 5xx, and bus hiccups;
	// retried by the runtime per backoff policy.
	KindTransient Kind = "TransientFault"
	// KindPermanent covers probe 4xx and invalid credentials; the task is
	// marked FAILED immediately and the agent degrades after threshold.
	KindPermanent Kind = "PermanentFault"
	// KindStorage is retried with a tight cap; a sustained fault promotes
	// the orchestrator to read-only mode.
	KindStorage Kind = "StorageFault"
	// KindIllegalTransition is a programming error: logged, caller
	// rejected, process continues.
	KindIllegalTransition Kind = "IllegalTransition"
	// KindBreakerOpen means the task is requeued with not_before set.
	KindBreakerOpen Kind = "BreakerOpen"
	// KindRateLimited means the task is requeued with not_before set.
	KindRateLimited Kind = "RateLimited"
	// KindTaskTimeout marks a task that exceeded its deadline.
	KindTaskTimeout Kind = "TaskTimeout"
	// KindHash marks a canonicalization/hash failure in the evidence pipeline.
	KindHash Kind = "HashFault"
	// KindBusClosed means publish was attempted after bus shutdown.
	KindBusClosed Kind = "BusClosed"
)

// Fault is a structured error carrying a Kind, a human message, optional
// structured details, and an optional wrapped cause.
type Fault struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("[%s] %s", f.Kind, f.Message)
}

// Unwrap returns the wrapped cause, if any.
func (f *Fault) Unwrap() error {
	return f.Err
}

// WithDetails attaches a key/value detail and returns the fault for chaining.
func (f *Fault) WithDetails(key string, value any) *Fault {
	if f.Details == nil {
		f.Details = make(map[string]any)
	}
	f.Details[key] = value
	return f
}

// New creates a Fault with no wrapped cause.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Wrap creates a Fault wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Fault {
	return &Fault{Kind: kind, Message: message, Err: err}
}

// Constructors mirroring the kinds above, one per component call site.

func Config(message string) *Fault { return New(KindConfig, message) }

func Transient(operation string, err error) *Fault {
	return Wrap(KindTransient, "transient failure", err).WithDetails("operation", operation)
}

func Permanent(operation string, err error) *Fault {
	return Wrap(KindPermanent, "permanent failure", err).WithDetails("operation", operation)
}

func Storage(operation string, err error) *Fault {
	return Wrap(KindStorage, "storage operation failed", err).WithDetails("operation", operation)
}

func IllegalTransition(subject, from, to string) *Fault {
	return New(KindIllegalTransition, "illegal state transition").
		WithDetails("subject", subject).
		WithDetails("from", from).
		WithDetails("to", to)
}

func BreakerOpen(target string) *Fault {
	return New(KindBreakerOpen, "circuit breaker open").WithDetails("target", target)
}

func RateLimited(tenantID, action string) *Fault {
	return New(KindRateLimited, "rate limit exceeded").
		WithDetails("tenant_id", tenantID).
		WithDetails("action", action)
}

func TaskTimeout(taskID string) *Fault {
	return New(KindTaskTimeout, "task deadline exceeded").WithDetails("task_id", taskID)
}

func Hash(err error) *Fault {
	return Wrap(KindHash, "content hash computation failed", err)
}

func BusClosed() *Fault {
	return New(KindBusClosed, "message bus is closed")
}

// IsFault reports whether err is (or wraps) a *Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// As extracts the *Fault from an error chain, if present.
func As(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// Is reports whether err is a *Fault of the given kind.
func Is(err error, kind Kind) bool {
	f := As(err)
	return f != nil && f.Kind == kind
}
