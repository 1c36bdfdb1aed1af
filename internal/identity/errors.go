package identity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
)

// Failure codes reported by the managers, in addition to the password codes.
const (
	CodeDuplicateUserName     = "DuplicateUserName"
	CodeDuplicateEmail        = "DuplicateEmail"
	CodeInvalidUserName       = "InvalidUserName"
	CodeInvalidEmail          = "InvalidEmail"
	CodeInvalidRoleName       = "InvalidRoleName"
	CodeDuplicateRoleName     = "DuplicateRoleName"
	CodeUserLockoutNotEnabled = "UserLockoutNotEnabled"
	CodePasswordMismatch      = "PasswordMismatch"
	CodeUserAlreadyInRole     = "UserAlreadyInRole"
	CodeUserNotInRole         = "UserNotInRole"
)

type Failure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (f Failure) String() string {
	return f.Code + ": " + f.Description
}

// Error is returned when an operation is rejected by identity rules.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Messages formats each failure as "Code: Description".
func (e *Error) Messages() []string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.String()
	}
	return msgs
}

// HasCode reports whether err carries a failure with code.
func HasCode(err error, code string) bool {
	var idErr *Error
	if !errors.As(err, &idErr) {
		return false
	}
	for _, f := range idErr.Failures {
		if f.Code == code {
			return true
		}
	}
	return false
}

func failed(failures ...Failure) error {
	return &Error{Failures: failures}
}

func failure(code, format string, args ...interface{}) Failure {
	return Failure{Code: code, Description: fmt.Sprintf(format, args...)}
}
