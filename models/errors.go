package models

import (
	"errors"
	"fmt"
)

var (
	ErrTrackerUnavailable = errors.New("issue tracker unavailable")
	ErrNoComponents       = errors.New("no components available")
	ErrComponentNotFound  = errors.New("component not found")
)

// UserError carries a message that is safe to show in chat.
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// UserMessage renders err for chat. Internal details are dropped for non-user errors.
func UserMessage(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		if ue.Hint != "" {
			return ue.Message + "\n" + ue.Hint
		}
		return ue.Message
	}
	if errors.Is(err, ErrTrackerUnavailable) {
		return "Jira is not reachable right now, please try again in a few minutes."
	}
	return "Something went wrong while processing your request."
}
