package auth

import (
	"context"
)

type AuthService interface {
	// IssueToken checks the admin API key and returns an access token for a
	// supervisor of the directory.
	IssueToken(ctx context.Context, req TokenRequest) (TokenResponse, error)
}
