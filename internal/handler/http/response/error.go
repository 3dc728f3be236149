package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/correlation"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrSupervisorAccessRequired):
		Forbidden(w, "Supervisor access required")
	case errors.Is(err, auth.ErrAdminKeyNotConfigured):
		Forbidden(w, "Admin API is disabled")

	// Handshake errors
	case errors.Is(err, correlation.ErrTokenNotFound):
		Gone(w, "This location link has expired or was already used")
	case errors.Is(err, attendance.ErrHandshakeInProgress):
		Conflict(w, err.Error())

	// Member errors
	case errors.Is(err, member.ErrMissingHandle):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, member.ErrNotRegistered):
		NotFound(w, "Member not found")
	case errors.Is(err, member.ErrAlreadyClockedIn),
		errors.Is(err, member.ErrNotYetClockedIn),
		errors.Is(err, member.ErrAlreadyClockedOut):
		Conflict(w, err.Error())

	// Leave domain errors
	case errors.Is(err, leave.ErrLeaveRequestNotFound):
		NotFound(w, "Leave request not found")
	case errors.Is(err, leave.ErrAlreadyDecided):
		Conflict(w, "Leave request already decided")
	case errors.Is(err, leave.ErrNotReviewer):
		Forbidden(w, err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
