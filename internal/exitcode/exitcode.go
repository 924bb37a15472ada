// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, bad task reference, invalid value).
	UserError = 1

	// AuthError indicates an auth/config error (not logged in, sign-in rejected).
	AuthError = 2

	// BackendError indicates a store/API/network error.
	BackendError = 3
)
