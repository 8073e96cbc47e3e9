package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CodeError is a value error carried across the service boundary.
// Handlers serialize it as {success:false, code, msg}; it never crosses as a panic.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail returns a copy with extra detail appended; the template error stays untouched.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !errors.As(target, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// Wrap adds stack context to an arbitrary error.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// WrapMsg adds a message plus stack context.
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(errors.WithStack(err), msg)
}

// Unwrap walks the chain back to a *CodeError if one is present.
func Unwrap(err error) (*CodeError, bool) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
