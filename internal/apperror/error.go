package apperror

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"
)

// Kind groups codes by how a caller should react to them.
type Kind string

const (
	KindInvalid   Kind = "invalid"
	KindNotFound  Kind = "not_found"
	KindTransient Kind = "transient"
	KindRejected  Kind = "rejected"
	KindInternal  Kind = "internal"
)

// AppError is the error type shared by every package of the bot.
type AppError struct {
	Code      Code      `json:"code"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
	stack     []uintptr
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches another AppError by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Transient reports whether retrying the failed operation may succeed.
func (e *AppError) Transient() bool {
	return e.Kind == KindTransient
}

// LogValue renders the error as a slog group, stack included.
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("kind", string(e.Kind)),
		slog.String("message", e.Message),
	}
	if e.Context != "" {
		attrs = append(attrs, slog.String("context", e.Context))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	if len(e.stack) > 0 {
		attrs = append(attrs, slog.String("stack", e.formatStack()))
	}
	return slog.GroupValue(attrs...)
}

func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func captureStack() []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates an AppError for code. Message and Kind default from the code.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Kind:      kindOf(code),
		Message:   messages[code],
		Timestamp: time.Now(),
		stack:     captureStack(),
	}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// Option customizes an AppError built by New.
type Option func(*AppError)

func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

func WithKind(kind Kind) Option {
	return func(e *AppError) {
		e.Kind = kind
	}
}

func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// NotFound reports a missing account, transaction or pool.
func NotFound(code Code, context string) *AppError {
	return New(code, WithContext(context), WithKind(KindNotFound))
}

// Validation reports bad input or configuration.
func Validation(code Code, context string) *AppError {
	return New(code, WithContext(context), WithKind(KindInvalid))
}

// Internal reports a bug or an unexpected failure.
func Internal(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithKind(KindInternal))
}

// External reports a failing dependency such as the RPC node.
func External(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause), WithKind(KindTransient))
}

// Wrap turns err into an AppError. An AppError already in the chain is
// returned as is, taking context if it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return Internal(code, context, err)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.cause
	}
	return false
}

// GetCode returns the code of the outermost AppError in err's chain.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

func kindOf(code Code) Kind {
	switch {
	case code == CodeNotFound, code == CodeAccountNotFound, code == CodeCacheMiss:
		return KindNotFound
	case strings.HasPrefix(string(code), "INVALID"),
		code == CodeRequiredField,
		code == CodeValidationError,
		code == CodeConfigurationError:
		return KindInvalid
	case strings.Contains(string(code), "CONNECTION"),
		strings.Contains(string(code), "TIMEOUT"),
		strings.HasPrefix(string(code), "WEBSOCKET"),
		code == CodeServiceUnavailable,
		code == CodeRateLimitExceeded,
		code == CodeCircuitOpen,
		code == CodeCircuitHalfOpen,
		code == CodeExecutorBusy:
		return KindTransient
	case code == CodeRPCError,
		code == CodeSubmissionError,
		code == CodeTransactionTooLarge,
		code == CodeEmptyBundle,
		code == CodeInsufficientLiquidity:
		return KindRejected
	default:
		return KindInternal
	}
}
