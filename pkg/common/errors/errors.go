// pkg/common/errors/errors.go

/*
  - 使用实例
    // 业务层:
    return errors.Precondition("profile.select_title", errors.ErrTitleNotUnlocked)

    // 接口层:
    if errors.KindOf(err) == errors.KindValidation {
    // 400
    }
*/
package errors

import (
	"errors"
	"fmt"

	hzte "github.com/cloudwego/hertz/pkg/common/errors"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindRemote
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindRemote:
		return "remote"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// 原始错误
var (
	ErrNoSession          = errors.New("no session")
	ErrTitleNotUnlocked   = errors.New("title not unlocked")
	ErrUploadInProgress   = errors.New("avatar upload already in progress")
	ErrNotImage           = errors.New("selected file is not an image")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrDuplicateEntry     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDatabaseInternal   = errors.New("database internal error")
)

// Error carries the failure kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Precondition(op string, err error) error { return newError(KindPrecondition, op, err) }

func Remote(op string, err error) error { return newError(KindRemote, op, err) }

func Validation(op string, err error) error { return newError(KindValidation, op, err) }

// KindOf returns the outermost kind found in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Public 包装成 Hertz 公共错误, meta 中带上分类
func Public(err error) *hzte.Error {
	return hzte.New(err, hzte.ErrorTypePublic, map[string]interface{}{
		"kind": KindOf(err).String(),
	})
}

// Is 与 As 转发到标准库, 方便调用方只导入本包
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
