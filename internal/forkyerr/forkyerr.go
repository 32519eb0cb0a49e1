// Package forkyerr is Forky's error taxonomy. Every component surfaces
// errors through this package so callers (the CLI, an HTTP layer, tests)
// can branch on a stable Kind rather than parsing messages — the same
// sentinel+wrap idiom the teacher uses in internal/storage/dolt/errors.go,
// generalized into a single named-reason type instead of one sentinel per
// package.
package forkyerr

import (
	"errors"
	"fmt"
)

// Kind names a category from the error taxonomy (spec §7).
type Kind string

const (
	KindUnknownConversation Kind = "unknown_conversation"
	KindUnknownNode         Kind = "unknown_node"
	KindUnknownIdentifier   Kind = "unknown_identifier"
	KindInvalidParent       Kind = "invalid_parent"
	KindCannotDeleteRoot    Kind = "cannot_delete_root"
	// KindCannotDeleteCurrent is reserved by the taxonomy but unproduced:
	// DeleteNode repositions current onto a surviving parent instead of
	// rejecting the delete (see DESIGN.md Open Question 2).
	KindCannotDeleteCurrent Kind = "cannot_delete_current"
	KindMergeIneligible     Kind = "merge_ineligible"
	KindModelError          Kind = "model_error"
	KindModelTimeout        Kind = "model_timeout"
	KindModelUnavailable    Kind = "model_unavailable"
	KindSummarizationFailed Kind = "summarization_failed"
	KindCorruptStore        Kind = "corrupt_store"
	KindBusy                Kind = "busy"
)

// Named merge-ineligibility reasons (§4.5 step 1).
const (
	ReasonSelfMerge        = "cannot_merge_node_with_itself"
	ReasonAncestorMerge    = "cannot_merge_ancestor_with_descendant"
	ReasonNoCommonAncestor = "no_common_ancestor_found"
)

// Error wraps a Kind, an operation label, an optional named Reason (used by
// MergeIneligible), and the underlying cause.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, forkyerr.Of(kind)) work by comparing Kind via a
// sentinel wrapper — see kindSentinel below.
func (e *Error) Is(target error) bool {
	var k *kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	return false
}

// kindSentinel lets callers write errors.Is(err, forkyerr.Of(KindBusy)).
type kindSentinel struct{ kind Kind }

func (k *kindSentinel) Error() string { return string(k.kind) }

// Of returns a sentinel usable with errors.Is to test an error's Kind.
func Of(k Kind) error { return &kindSentinel{kind: k} }

// New builds an *Error with the given kind and op, wrapping err.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Newf builds an *Error from a formatted message instead of a wrapped error.
func Newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, args...)}
}

// MergeIneligible builds the MergeIneligible{reason} error of §4.5 step 1.
func MergeIneligible(op, reason string) *Error {
	return &Error{Kind: KindMergeIneligible, Op: op, Reason: reason}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *forkyerr.Error, and reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}
