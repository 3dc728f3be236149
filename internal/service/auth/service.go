package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	directory member.Directory
	jwt.Service
	keyHash string
}

func NewAuthService(directory member.Directory, jwtService jwt.Service, keyHash string) auth.AuthService {
	return &AuthServiceImpl{
		directory: directory,
		Service:   jwtService,
		keyHash:   keyHash,
	}
}

// HashKey hashes an admin API key for the ADMIN_KEY_HASH setting.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IssueToken implements auth.AuthService.
func (a *AuthServiceImpl) IssueToken(ctx context.Context, req auth.TokenRequest) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}
	if a.keyHash == "" {
		return auth.TokenResponse{}, auth.ErrAdminKeyNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.keyHash), []byte(req.APIKey)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	m, err := a.directory.Get(req.Handle)
	if err != nil {
		if errors.Is(err, member.ErrNotRegistered) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, err
	}
	if !m.IsSupervisor() {
		return auth.TokenResponse{}, auth.ErrSupervisorAccessRequired
	}

	token, expiresAt, err := a.Service.GenerateAccessToken(m.Handle, m.Role)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	slog.Info("Admin token issued", "handle", m.Handle)
	return auth.TokenResponse{
		AccessToken:          token,
		AccessTokenExpiresAt: expiresAt,
		Handle:               m.Handle,
		Role:                 string(m.Role),
	}, nil
}
