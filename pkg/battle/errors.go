package battle

import "errors"

// Kind classifies a rejected command so transports can decide who hears about
// it and whether the client should retry.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindStateConflict
	KindNotFound
	KindExternalService
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExternalService:
		return "external"
	default:
		return "internal"
	}
}

// Error is a classified engine error. Sentinel values below are compared with
// errors.Is; wrap them with fmt.Errorf to add context.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Validation errors: malformed input, reported to the sender only.
var (
	ErrOutOfBounds      = newError(KindValidation, "coordinates out of bounds")
	ErrAlreadyFired     = newError(KindValidation, "already fired at this cell")
	ErrShipOutOfBounds  = newError(KindValidation, "ship extends beyond grid boundary")
	ErrShipOverlap      = newError(KindValidation, "ship overlaps with another ship")
	ErrInvalidFleet     = newError(KindValidation, "invalid fleet: ships must be sizes 5, 4, 3, 3, 2")
	ErrInvalidShipSize  = newError(KindValidation, "invalid ship size")
	ErrInvalidCommand   = newError(KindValidation, "malformed command")
	ErrIdentityMismatch = newError(KindValidation, "player id does not match connection identity")
)

// State conflicts: the command is well formed but not allowed right now.
var (
	ErrLocked            = newError(KindStateConflict, "weapons locked")
	ErrNotLocked         = newError(KindStateConflict, "weapons are not locked")
	ErrWrongPhase        = newError(KindStateConflict, "command not allowed in the current phase")
	ErrSelfJoin          = newError(KindStateConflict, "cannot play against yourself")
	ErrMatchFull         = newError(KindStateConflict, "match is full")
	ErrMatchFinished     = newError(KindStateConflict, "match has already ended")
	ErrNotParticipant    = newError(KindStateConflict, "not a participant in this match")
	ErrFleetConfirmed    = newError(KindStateConflict, "fleet already confirmed")
	ErrNoVetoesRemaining = newError(KindStateConflict, "no vetoes remaining")
	ErrAlreadyPenalized  = newError(KindStateConflict, "veto penalty already counting down")
	ErrPenaltyActive     = newError(KindStateConflict, "cannot solve during veto penalty")
	ErrRateLimited       = newError(KindStateConflict, "please wait before verifying again")
	ErrNotJoined         = newError(KindStateConflict, "join the match first")
)

var (
	ErrMatchNotFound = newError(KindNotFound, "match not found")

	ErrNotVerified         = newError(KindValidation, "no accepted submission found for this problem")
	ErrHandleNotFound      = newError(KindValidation, "codeforces handle not found")
	ErrVerifierUnavailable = newError(KindExternalService, "verification service unavailable, try again")

	ErrInternal = newError(KindInternal, "internal error")
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal
// for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
