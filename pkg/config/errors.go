package config

import "fmt"

// Error is a configuration problem detected before any request is sent to the
// controller: a bad option value, an unknown graph template, an unreadable
// config file.
type Error struct {
	msg string
	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func Errorf(format string, a ...interface{}) error {
	return &Error{
		msg: fmt.Sprintf(format, a...),
	}
}

func WrapError(err error, format string, a ...interface{}) error {
	return &Error{
		msg: fmt.Sprintf(format, a...),
		err: err,
	}
}
