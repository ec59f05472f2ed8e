package service

import (
	"errors"
	"fmt"
)

// Not-found errors are distinct from rule violations so callers can tell
// "this doesn't exist" from "this exists but isn't allowed right now".
var (
	ErrGameNotFound      = errors.New("game not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrTerritoryNotFound = errors.New("territory not found")
	ErrGameNotWaiting    = errors.New("game is not in waiting status")
	ErrGameNotActive     = errors.New("game is not active")
	ErrNotCreator        = errors.New("only the creator can do that")
	ErrNationTaken       = errors.New("nation already taken")
	ErrNoOpenSeat        = errors.New("no open seat to join")
	ErrAlreadyJoined     = errors.New("already joined this game")
)

// RuleError is a precondition violation: the game exists and the caller is
// known, but the requested action is not legal right now. Message is safe
// to show to a player or feed back to a model seat; Hint suggests a next
// step.
type RuleError struct {
	Message string
	Hint    string
}

func (e *RuleError) Error() string {
	return e.Message
}

func ruleErrorf(hint, format string, args ...any) *RuleError {
	return &RuleError{Message: fmt.Sprintf(format, args...), Hint: hint}
}

// AsRuleError unwraps err into a *RuleError if it is one.
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
