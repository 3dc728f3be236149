package auth

import "github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"

// TokenRequest exchanges a supervisor's handle and the admin API key for an
// access token.
type TokenRequest struct {
	Handle string `json:"handle"`
	APIKey string `json:"api_key"`
}

func (r *TokenRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Handle) {
		errs = append(errs, validator.ValidationError{
			Field:   "handle",
			Message: "handle is required",
		})
	}
	if validator.IsEmpty(r.APIKey) {
		errs = append(errs, validator.ValidationError{
			Field:   "api_key",
			Message: "api_key is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type TokenResponse struct {
	AccessToken          string `json:"access_token"`
	AccessTokenExpiresAt int64  `json:"access_token_expires_at"`
	Handle               string `json:"handle"`
	Role                 string `json:"role"`
}
