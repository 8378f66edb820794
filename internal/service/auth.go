package service

import (
	"crypto/subtle"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/security"
)

// AuthService handles authentication operations
type AuthService struct {
	allowList *domain.AllowList
	password  string
	codec     *security.SessionCodec
}

// NewAuthService creates a new auth service
func NewAuthService(allowList *domain.AllowList, password string, codec *security.SessionCodec) *AuthService {
	return &AuthService{
		allowList: allowList,
		password:  password,
		codec:     codec,
	}
}

// Login checks the username against the allow-list and the shared password,
// then mints a signed session token.
func (s *AuthService) Login(username, password string) (string, error) {
	if !s.allowList.Contains(username) {
		return "", domain.ErrInvalidUser
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return "", domain.ErrInvalidPassword
	}
	return s.codec.Issue(username), nil
}

// IsAdmin reports whether username is the administrator
func (s *AuthService) IsAdmin(username string) bool {
	return s.allowList.IsAdmin(username)
}
