package session

// SessionError is a custom error type for session-related errors
type SessionError string

// Error implements the error interface
func (e SessionError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrSessionNotFound SessionError = "session not found"
	ErrInvalidConfig   SessionError = "invalid shuffle configuration"
	ErrEmptySession    SessionError = "session has no members"
	ErrNilConfig       SessionError = "config cannot be nil"
	ErrNilRepository   SessionError = "session repository cannot be nil"
	ErrNilShuffler     SessionError = "shuffler cannot be nil"
)
