package identity

// Code is a provider error code.
type Code string

const (
	CodeEmailAlreadyInUse   Code = "auth/email-already-in-use"
	CodeInvalidEmail        Code = "auth/invalid-email"
	CodeOperationNotAllowed Code = "auth/operation-not-allowed"
	CodeWeakPassword        Code = "auth/weak-password"
	CodeUserDisabled        Code = "auth/user-disabled"
	CodeUserNotFound        Code = "auth/user-not-found"
	CodeWrongPassword       Code = "auth/wrong-password"
	CodeTooManyRequests     Code = "auth/too-many-requests"

	// Codes below have no fixed message; the raw message is shown.
	CodeInternal             Code = "auth/internal-error"
	CodeGoogleNotConfigured  Code = "auth/google-not-configured"
	CodeGoogleSignInFailed   Code = "auth/google-sign-in-failed"
	CodeInvalidSessionSecret Code = "auth/invalid-session-secret"
)

// DefaultMessage is shown for unmapped codes without a raw message.
const DefaultMessage = "An error occurred during authentication."

var messages = map[Code]string{
	CodeEmailAlreadyInUse:   "This email is already registered. Please try logging in instead.",
	CodeInvalidEmail:        "Please enter a valid email address.",
	CodeOperationNotAllowed: "Email/password accounts are not enabled. Please contact support.",
	CodeWeakPassword:        "Please choose a stronger password (at least 6 characters).",
	CodeUserDisabled:        "This account has been disabled. Please contact support.",
	CodeUserNotFound:        "No account found with this email. Please register first.",
	CodeWrongPassword:       "Incorrect password. Please try again.",
	CodeTooManyRequests:     "Too many failed attempts. Please try again later.",
}

// Error is a sign-in, sign-up or sign-out rejection.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// MessageFor returns the fixed message for code, falling back to raw and
// then to DefaultMessage.
func MessageFor(code Code, raw string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	if raw != "" {
		return raw
	}
	return DefaultMessage
}

func newError(code Code, raw string) *Error {
	return &Error{Code: code, Message: MessageFor(code, raw)}
}
