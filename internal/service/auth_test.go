package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpaceshipxDev/super-tribble/internal/domain"
	"github.com/SpaceshipxDev/super-tribble/internal/security"
)

func TestAuthService_Login(t *testing.T) {
	allowList := testAllowList()
	codec := security.NewSessionCodec("test-secret", allowList)
	svc := NewAuthService(allowList, "boldJam3", codec)

	t.Run("success", func(t *testing.T) {
		token, err := svc.Login("test1", "boldJam3")
		require.NoError(t, err)

		username, ok := codec.Parse(token)
		require.True(t, ok)
		assert.Equal(t, "test1", username)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login("mallory", "boldJam3")
		assert.ErrorIs(t, err, domain.ErrInvalidUser)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login("test1", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidPassword)
	})

	t.Run("admin logs in like anyone else", func(t *testing.T) {
		token, err := svc.Login("admin", "boldJam3")
		require.NoError(t, err)

		username, ok := codec.Parse(token)
		require.True(t, ok)
		assert.Equal(t, "admin", username)
		assert.True(t, svc.IsAdmin(username))
	})
}
