package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-bot/internal/handler/http/response"
)

type AuthHandler interface {
	IssueToken(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	authService auth.AuthService
}

func NewAuthHandler(authService auth.AuthService) AuthHandler {
	return &AuthHandlerImpl{
		authService: authService,
	}
}

// IssueToken implements AuthHandler.
func (a *AuthHandlerImpl) IssueToken(w http.ResponseWriter, r *http.Request) {
	var tokenReq auth.TokenRequest

	// 1. Decode JSON
	if err := json.NewDecoder(r.Body).Decode(&tokenReq); err != nil {
		slog.Warn("Token request decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	// Call service
	tokenResponse, err := a.authService.IssueToken(r.Context(), tokenReq)
	if err != nil {
		slog.Warn("Token request rejected", "handle", tokenReq.Handle, "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Token issued", tokenResponse)
}
