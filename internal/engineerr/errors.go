// Package engineerr defines the typed error kinds propagated as explicit
// result values across the core (spec §7). None of these are meant to
// unwind via panic/recover — every producing function returns them as a
// plain error, usually wrapped with fmt.Errorf("...: %w", ...).
package engineerr

import "fmt"

// Kind enumerates the error kinds listed in spec §7.
type Kind string

const (
	ValidatorNotFound       Kind = "ValidatorNotFound"
	AlreadyRegistered       Kind = "AlreadyRegistered"
	PolicyMismatch          Kind = "PolicyMismatch"
	NotEnoughFunds          Kind = "NotEnoughFunds"
	Blacklisted             Kind = "Blacklisted"
	UtxoNotFound            Kind = "UtxoNotFound"
	RegistryInconsistent    Kind = "RegistryInconsistent"
	ScriptParamEncodingFail Kind = "ScriptParamEncodingFailure"
	FeeConvergenceFailed    Kind = "FeeConvergenceFailed"
	ValueNotConserved       Kind = "ValueNotConserved"
	Cancelled               Kind = "Cancelled"
	MissingCollateral       Kind = "MissingCollateral"
)

// recoverable records whether a caller can reasonably retry/surface this
// kind to the user, vs. it indicating a config or logic bug (spec §7).
var recoverable = map[Kind]bool{
	ValidatorNotFound:       false,
	AlreadyRegistered:       true,
	PolicyMismatch:          false,
	NotEnoughFunds:          true,
	Blacklisted:             true,
	UtxoNotFound:            true,
	RegistryInconsistent:    false,
	ScriptParamEncodingFail: false,
	FeeConvergenceFailed:    false,
	ValueNotConserved:       false,
	Cancelled:               true,
	MissingCollateral:       true,
}

// Error is the engine's structured error type. It always carries a Kind and
// optionally the context (title/outpoint/policy id) needed to be
// user-surfaceable verbatim (spec §7).
type Error struct {
	Kind     Kind
	Message  string
	Title    string // blueprint validator title, when relevant
	Outpoint string // tx_hash#index, when relevant
	PolicyID string // hex policy id, when relevant
	Err      error  // wrapped cause, if any
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Title != "" {
		s += fmt.Sprintf(" (title=%s)", e.Title)
	}
	if e.Outpoint != "" {
		s += fmt.Sprintf(" (outpoint=%s)", e.Outpoint)
	}
	if e.PolicyID != "" {
		s += fmt.Sprintf(" (policy_id=%s)", e.PolicyID)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Recoverable reports whether the caller can reasonably retry or surface
// this error to the end user, as opposed to it indicating a config or
// internal-consistency bug.
func (e *Error) Recoverable() bool { return recoverable[e.Kind] }

// New builds an Error of the given kind with a plain message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// WithTitle attaches a blueprint validator title for user-surfaceable context.
func (e *Error) WithTitle(title string) *Error {
	e.Title = title
	return e
}

// WithOutpoint attaches an outpoint for user-surfaceable context.
func (e *Error) WithOutpoint(outpoint string) *Error {
	e.Outpoint = outpoint
	return e
}

// WithPolicyID attaches a policy id for user-surfaceable context.
func (e *Error) WithPolicyID(policyID string) *Error {
	e.PolicyID = policyID
	return e
}
