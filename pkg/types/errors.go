package types

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindOutOfMemory ErrKind = iota // heap cannot grow to satisfy a request
	ErrKindNotFound                   // key, index or pointer not present
	ErrKindDuplicate                  // insertion rejected by a no-duplicates policy
	ErrKindCorrupt                    // consistency scan found an invalid header
	ErrKindMisuse                     // stale handle, double release, double link
	ErrKindInvalid                    // argument outside the accepted domain
)

// String returns the lowercase name of the kind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindOutOfMemory:
		return "out of memory"
	case ErrKindNotFound:
		return "not found"
	case ErrKindDuplicate:
		return "duplicate"
	case ErrKindCorrupt:
		return "corrupt"
	case ErrKindMisuse:
		return "misuse"
	case ErrKindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is e itself or the generic sentinel of e's kind.
// This lets callers test any package-specific error against the sentinels
// below while package sentinels of the same kind stay distinct:
//
//	if errors.Is(err, types.ErrOutOfMemory) { ... }
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if e == t {
		return true
	}
	return e.Kind == t.Kind && kindSentinels[t.Kind] == t
}

// New builds a typed error of the given kind.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a typed error of the given kind around cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrKind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}

// Sentinels commonly returned by implementations.
var (
	// ErrOutOfMemory indicates the heap could not grow.
	ErrOutOfMemory = &Error{Kind: ErrKindOutOfMemory, Msg: "out of memory"}
	// ErrNotFound indicates a missing key, index or member.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrDuplicate indicates an insertion rejected as a duplicate.
	ErrDuplicate = &Error{Kind: ErrKindDuplicate, Msg: "duplicate rejected"}
	// ErrCorrupt indicates non-recoverable structural inconsistency.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt heap structure"}
	// ErrMisuse indicates an operation on a stale or already released handle.
	ErrMisuse = &Error{Kind: ErrKindMisuse, Msg: "misuse of handle"}
	// ErrInvalid indicates an argument outside the accepted domain.
	ErrInvalid = &Error{Kind: ErrKindInvalid, Msg: "invalid argument"}
)

var kindSentinels = map[ErrKind]*Error{
	ErrKindOutOfMemory: ErrOutOfMemory,
	ErrKindNotFound:    ErrNotFound,
	ErrKindDuplicate:   ErrDuplicate,
	ErrKindCorrupt:     ErrCorrupt,
	ErrKindMisuse:      ErrMisuse,
	ErrKindInvalid:     ErrInvalid,
}
