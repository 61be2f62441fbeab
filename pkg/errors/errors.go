package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery  = errors.New("invalid request")
	ErrNoMatches     = errors.New("no matching files")
	ErrCorruptIndex  = errors.New("corrupt index")
	ErrInvalidSource = errors.New("invalid index source")
	ErrOverflow      = errors.New("numeric overflow")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
)

// Process exit codes reported by the command-line tools.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitCorruptIndex = 3
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// Corruptf reports malformed on-disk data.
func Corruptf(format string, args ...any) *AppError {
	return Newf(ErrCorruptIndex, ExitCorruptIndex, format, args...)
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidSource), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrOverflow):
		return ExitUsage
	case errors.Is(err, ErrCorruptIndex):
		return ExitCorruptIndex
	default:
		return ExitFailure
	}
}
