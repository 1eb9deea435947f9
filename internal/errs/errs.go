// Package errs defines the closed error taxonomy shared by every core
// component (spec §7). Recoverable errors are returned as values; only an
// unexpected dispatcher failure is fatal.
package errs

import "fmt"

// Kind identifies which row of the taxonomy an Error belongs to.
type Kind int

const (
	// Validation means input violated a stated invariant (blank title,
	// out-of-range priority, empty reminders).
	Validation Kind = iota
	// ConstraintNotFound means a resolver lookup missed.
	ConstraintNotFound
	// CircularReference means the defensive cycle detector fired.
	CircularReference
	// ConstraintReferenceValidation means a composite was admitted with
	// dangling references.
	ConstraintReferenceValidation
	// ConstraintInUse means removal was rejected because another
	// constraint still references the target.
	ConstraintInUse
	// InvalidWorkflowTransition means a sequential composition saw a
	// forbidden state transition.
	InvalidWorkflowTransition
	// SkipFailure means a progressive skip was rejected.
	SkipFailure
	// DeadlineExceeded means a request exceeded the latency budget.
	DeadlineExceeded
	// ParseError is a JSON-RPC level malformed-body error.
	ParseError
	// MethodNotFound is a JSON-RPC level unknown-method error.
	MethodNotFound
	// InternalError is an unexpected, otherwise-unclassified failure.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "Validation"
	case ConstraintNotFound:
		return "ConstraintNotFound"
	case CircularReference:
		return "CircularReference"
	case ConstraintReferenceValidation:
		return "ConstraintReferenceValidation"
	case ConstraintInUse:
		return "ConstraintInUse"
	case InvalidWorkflowTransition:
		return "InvalidWorkflowTransition"
	case SkipFailure:
		return "SkipFailure"
	case DeadlineExceeded:
		return "DeadlineExceeded"
	case ParseError:
		return "ParseError"
	case MethodNotFound:
		return "MethodNotFound"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error is the single carrier type for the taxonomy; callers switch on Kind
// rather than type-asserting to a family of error types.
type Error struct {
	Kind    Kind
	Message string
	// Detail carries kind-specific structured data: a chain of ids for
	// CircularReference, a list of missing ids for
	// ConstraintReferenceValidation, a list of referer ids for
	// ConstraintInUse, and so on. Callers that need the structured form
	// should use the constructor helpers below rather than this field.
	Detail any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds a plain Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a ConstraintNotFound error for id.
func NotFound(id string) *Error {
	return &Error{Kind: ConstraintNotFound, Message: "constraint not found", Detail: id}
}

// Circular builds a CircularReference error carrying the offending chain.
func Circular(chain []string) *Error {
	return &Error{Kind: CircularReference, Message: "circular constraint reference", Detail: chain}
}

// DanglingReferences builds a ConstraintReferenceValidation error.
func DanglingReferences(missing []string) *Error {
	return &Error{Kind: ConstraintReferenceValidation, Message: "composite references missing constraints", Detail: missing}
}

// InUse builds a ConstraintInUse error.
func InUse(id string, referers []string) *Error {
	return &Error{Kind: ConstraintInUse, Message: fmt.Sprintf("%s is still referenced", id), Detail: referers}
}

// WorkflowTransition builds an InvalidWorkflowTransition error.
func WorkflowTransition(from, to string) *Error {
	return &Error{Kind: InvalidWorkflowTransition, Message: fmt.Sprintf("invalid transition %s -> %s", from, to), Detail: [2]string{from, to}}
}

// SkipReason is the closed set of reasons a progressive skip can fail.
type SkipReason int

const (
	// InvalidTargetLevel means the requested level is out of range or not
	// ahead of the current level.
	InvalidTargetLevel SkipReason = iota
	// MissingPrerequisites means intervening levels are not completed.
	MissingPrerequisites
	// SystematicProgressionRequired means the target is more than one
	// level ahead of current; multi-step skipping is never allowed.
	SystematicProgressionRequired
)

func (r SkipReason) String() string {
	switch r {
	case InvalidTargetLevel:
		return "InvalidTargetLevel"
	case MissingPrerequisites:
		return "MissingPrerequisites"
	case SystematicProgressionRequired:
		return "SystematicProgressionRequired"
	default:
		return "Unknown"
	}
}

// Skip builds a SkipFailure error carrying its typed reason.
func Skip(reason SkipReason) *Error {
	return &Error{Kind: SkipFailure, Message: reason.String(), Detail: reason}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

func asError(err error, target **Error) bool {
	if err == nil {
		return false
	}
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}

// Public-facing JSON-RPC error messages. Overridable at process startup
// (before the dispatcher begins serving requests) to customize wire text.
var (
	// PublicParseError is the JSON-RPC -32700 message text.
	PublicParseError = "Parse error"
	// PublicMethodNotFound is the JSON-RPC -32601 message text.
	PublicMethodNotFound = "Method not found"
	// PublicInternalError is the JSON-RPC -32603 message text.
	PublicInternalError = "Internal error"
)

// JSON-RPC 2.0 reserved error codes used by the dispatcher.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)
