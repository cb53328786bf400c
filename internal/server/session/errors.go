package session

import "errors"

// Typed errors surfaced to the HTTP layer. The handler maps them to
// status codes; anything else becomes a generic 500.
var (
	// ErrValidation wraps input-validation failures (bad username, email
	// or password format)
	ErrValidation = errors.New("validation failed")

	// ErrUsernameTaken indicates a registration conflict on username
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken indicates a registration conflict on email
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials is returned on login failure. One
	// undifferentiated message: не раскрываем, существует ли email.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRefreshToken is returned when the presented refresh token
	// is blank, unknown, expired, or already rotated away
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)
