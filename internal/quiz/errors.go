package quiz

import "errors"

// Kind classifies a rejection so callers can decide between prompting,
// resynchronizing and aborting.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindCapacity      Kind = "capacity"
	KindConflict      Kind = "conflict"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

// Error is a tagged rejection returned by every session operation.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Validation
var (
	ErrInvalidSettings = &Error{KindValidation, "invalid_settings", "invalid session settings"}
	ErrInvalidName     = &Error{KindValidation, "invalid_name", "player name is required"}
	ErrInvalidCode     = &Error{KindValidation, "invalid_code", "enter a valid join code"}
	ErrEmptyAnswer     = &Error{KindValidation, "empty_answer", "please enter a value"}
	ErrUnknownCountry  = &Error{KindValidation, "unknown_country", "unknown country"}
)

// Capacity
var (
	ErrRoomFull            = &Error{KindCapacity, "room_full", "this room is full"}
	ErrInsufficientPlayers = &Error{KindCapacity, "insufficient_players", "at least 2 players are needed to start"}
	ErrCreationQuota       = &Error{KindCapacity, "creation_quota", "session creation limit reached, try again later"}
)

// Conflict
var (
	ErrAlreadyJoined   = &Error{KindConflict, "already_joined", "you are already in this session"}
	ErrNotJoinable     = &Error{KindConflict, "not_joinable", "this session is no longer accepting players"}
	ErrAlreadyStarted  = &Error{KindConflict, "already_started", "the session has already started"}
	ErrNotPlaying      = &Error{KindConflict, "not_playing", "the session is not in progress"}
	ErrNotYourTurn     = &Error{KindConflict, "not_your_turn", "it is not your turn"}
	ErrAlreadyAnswered = &Error{KindConflict, "already_answered", "you already answered this country"}
	ErrLockViolation   = &Error{KindConflict, "lock_violation", "finish the current target first"}
	ErrDiceRequired    = &Error{KindConflict, "dice_required", "use the dice to play this turn"}
	ErrPickRequired    = &Error{KindConflict, "pick_required", "pick a country this turn, not a random one"}
	ErrNoActiveTarget  = &Error{KindConflict, "no_active_target", "pick or roll a country first"}
	ErrNoCountriesLeft = &Error{KindConflict, "no_countries_left", "all countries have been answered"}
	ErrAlreadyLeft     = &Error{KindConflict, "already_left", "the player already left"}
	ErrNotDeletable    = &Error{KindConflict, "not_deletable", "only waiting sessions can be deleted"}
	ErrFinished        = &Error{KindConflict, "finished", "the session has finished"}
)

// Authorization
var (
	ErrNotOwner  = &Error{KindAuthorization, "not_owner", "only the session owner can do this"}
	ErrForbidden = &Error{KindAuthorization, "forbidden", "you are not allowed to do this"}
)

// NotFound
var (
	ErrSessionNotFound = &Error{KindNotFound, "session_not_found", "game not found"}
	ErrPlayerNotFound  = &Error{KindNotFound, "player_not_found", "player is not in this session"}
)

// Internal
var ErrCorruptState = &Error{KindInternal, "corrupt_state", "session state is inconsistent, resynchronize"}

// KindOf returns the Kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Resync reports whether the caller should reload the latest snapshot
// before trying again.
func Resync(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindInternal:
		return true
	}
	return false
}
