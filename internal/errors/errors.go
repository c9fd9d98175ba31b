package errors

import (
	stderrors "errors"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for the commerce core. Callers classify errors by marking
// them with one of these and checking with the Is* helpers; the concrete
// message and details ride along on the chain.
var (
	// ErrValidation marks bad input. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists marks a uniqueness violation.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrInvalidOperation marks a business-rule violation. Never retried.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrOutOfStock marks an inventory adjustment that would take a
	// deny-policy variant below zero.
	ErrOutOfStock = errors.New("out of stock")
	// ErrPaymentProvider marks a failed remote call to the payment provider.
	// The caller may retry with backoff and an idempotency key.
	ErrPaymentProvider = errors.New("payment provider error")
	// ErrDatabase marks a failed local persistence operation.
	ErrDatabase = errors.New("database error")
	// ErrRetryable marks a reconciliation failure that the provider's webhook
	// redelivery is expected to recover.
	ErrRetryable = errors.New("retryable error")
	// ErrInternal marks everything else.
	ErrInternal = errors.New("internal error")
)

// InternalError carries the error chain plus operator-facing hint and details.
type InternalError struct {
	cause   error
	hint    string
	details map[string]any
}

func (e *InternalError) Error() string {
	if e.cause == nil {
		return ""
	}
	return e.cause.Error()
}

func (e *InternalError) Unwrap() error { return e.cause }

// NewError starts a new error chain with the given message.
func NewError(msg string) *InternalError {
	return &InternalError{cause: errors.NewWithDepth(1, msg)}
}

// NewErrorf starts a new error chain with a formatted message.
func NewErrorf(format string, args ...any) *InternalError {
	return &InternalError{cause: errors.NewWithDepthf(1, format, args...)}
}

// WithError wraps an existing error into a chain builder.
func WithError(err error) *InternalError {
	return &InternalError{cause: err}
}

// WithHint attaches a human-readable hint surfaced in API responses.
func (e *InternalError) WithHint(hint string) *InternalError {
	e.hint = hint
	e.cause = errors.WithHint(e.cause, hint)
	return e
}

// WithHintf attaches a formatted hint.
func (e *InternalError) WithHintf(format string, args ...any) *InternalError {
	return e.WithHint(fmtSprintf(format, args...))
}

// WithReportableDetails attaches structured details for the operator log.
func (e *InternalError) WithReportableDetails(details map[string]any) *InternalError {
	e.details = details
	return e
}

// Mark classifies the chain with a sentinel and finalizes it.
func (e *InternalError) Mark(sentinel error) error {
	e.cause = errors.Mark(e.cause, sentinel)
	return e
}

// Hint returns the outermost hint attached to err, if any.
func Hint(err error) string {
	var ie *InternalError
	if stderrors.As(err, &ie) {
		return ie.hint
	}
	return ""
}

// Details returns the outermost reportable details attached to err, if any.
func Details(err error) map[string]any {
	var ie *InternalError
	if stderrors.As(err, &ie) {
		return ie.details
	}
	return nil
}

func IsValidation(err error) bool       { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool    { return errors.Is(err, ErrAlreadyExists) }
func IsInvalidOperation(err error) bool { return errors.Is(err, ErrInvalidOperation) }
func IsOutOfStock(err error) bool       { return errors.Is(err, ErrOutOfStock) }
func IsPaymentProvider(err error) bool  { return errors.Is(err, ErrPaymentProvider) }
func IsDatabase(err error) bool         { return errors.Is(err, ErrDatabase) }
func IsInternal(err error) bool         { return errors.Is(err, ErrInternal) }

// IsRetryable reports whether the caller should expect redelivery/retry to
// recover the failure. Database failures during webhook handling are
// retryable by redelivery, so they count.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable) || errors.Is(err, ErrDatabase)
}
