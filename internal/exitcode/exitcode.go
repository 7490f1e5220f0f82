// Package exitcode defines exit codes for the CLI.
package exitcode

import "tarevity/internal/service"

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, rejected input).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// FromError maps a classified error to an exit code.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	switch service.KindOf(err) {
	case service.KindValidation, service.KindNotFound, service.KindMissingParameter:
		return UserError
	case service.KindUnauthenticated:
		return AuthError
	}
	return BackendError
}
