package domain

import "errors"

// Room errors
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomExpired        = errors.New("room has expired")
	ErrRoomMismatch       = errors.New("viewer does not belong to this room")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")
	ErrCodeTaken          = errors.New("room code already in use by an active room")
)

// Viewer errors
var (
	ErrViewerNotFound = errors.New("viewer not found")
)

// Auth errors
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailExists          = errors.New("email already registered")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenAlreadyUsed     = errors.New("token already used")
	ErrSecondFactorRequired = errors.New("second factor required")
	ErrTooManyAttempts      = errors.New("too many second factor attempts")
	ErrUploadsNotAllowed    = errors.New("uploads are not allowed in this room")
)

// ValidationError marks malformed caller input. It is always recoverable and
// its message is safe to show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
