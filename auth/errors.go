package auth

import (
	"errors"
	"fmt"

	"motoroute/verify"
)

// Code classifies identity failures the user can act on.
type Code string

const (
	CodeInvalidCredentials Code = "auth/wrong-password"
	CodeUserNotFound       Code = "auth/user-not-found"
	CodeEmailInUse         Code = "auth/email-already-in-use"
	CodeWeakPassword       Code = "auth/weak-password"
	CodeInvalidEmail       Code = "auth/invalid-email"
	CodeInvalidSession     Code = "auth/invalid-session"
)

const GenericMessage = "Something went wrong. Please try again."

var messages = map[Code]string{
	CodeInvalidCredentials: "Incorrect password",
	CodeUserNotFound:       "No account found with this email",
	CodeEmailInUse:         "An account with this email already exists",
	CodeWeakPassword:       "Password is too weak",
	CodeInvalidEmail:       "Invalid email address",
	CodeInvalidSession:     "Your session has expired. Please sign in again.",
}

type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the code of the *Error in err's chain, or "".
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// UserMessage maps err to the message shown to the user. Form validation
// messages pass through; unknown failures get GenericMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *verify.Error
	if errors.As(err, &ve) {
		return ve.Message
	}
	if msg, ok := messages[CodeOf(err)]; ok {
		return msg
	}
	return GenericMessage
}
