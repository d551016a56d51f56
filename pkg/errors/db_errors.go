package custom_error

import "fmt"

type CustomError interface {
	Error() string
}

type UniqueViolationError struct {
	message string
	code    string // PostgreSQL error code (e.g., "23505")
}

type ForeignKeyViolationError struct {
	message string
	code    string // PostgreSQL error code (e.g., "23503")
}

func (f *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", f.message, f.code)
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, e.code)
}

// WrapDBError converts raw PostgreSQL SQLSTATEs into typed errors. Lock
// timeouts and serialization failures become ConflictError so callers know
// the operation is safe to retry from scratch.
func WrapDBError(message, code string) CustomError {
	switch code {
	case "23505":
		return &UniqueViolationError{
			message: message,
			code:    code,
		}
	case "23503":
		return &ForeignKeyViolationError{
			message: "Value is already used by other resources " + message,
			code:    code,
		}
	case "55P03", "40001", "40P01":
		return NewConflictError(fmt.Sprintf("concurrent write contention: %s (code: %s)", message, code))
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s", code, message)
	}
}
