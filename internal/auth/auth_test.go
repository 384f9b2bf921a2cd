package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/grantchat/internal/config"
	apierrors "github.com/diogo/grantchat/internal/errors"
)

func TestLogin_DemoCredential(t *testing.T) {
	m := NewManager(t.TempDir())

	state, err := m.Login("  Admin@Example.com ", DemoPassword)
	require.NoError(t, err)
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, DemoEmail, state.Email)
	assert.Equal(t, UserIDFor(DemoEmail), state.UserID)

	current, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, state, current)

	info, err := os.Stat(m.StatePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	m := NewManager(t.TempDir())

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", DemoEmail, "nope"},
		{"unknown user", "someone@example.com", "admin"},
		{"empty email", "", "admin"},
		{"empty password", DemoEmail, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Login(tt.email, tt.password)
			assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
		})
	}

	_, err := m.Current()
	assert.ErrorIs(t, err, apierrors.ErrNotAuthenticated)
}

func TestLogin_FailureKeepsPreviousState(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Login(DemoEmail, DemoPassword)
	require.NoError(t, err)

	_, err = m.Login(DemoEmail, "wrong")
	require.Error(t, err)

	state, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, DemoEmail, state.Email)
}

func TestLogin_UsersFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	users := `[
  {"email": "ana@example.com", "password": "s3cret"},
  {"email": "bo@example.com", "password": "pw", "userId": "user-42"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(users), 0o600))

	state, err := m.Login("ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, UserIDFor("ana@example.com"), state.UserID)

	state, err = m.Login("BO@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "user-42", state.UserID)

	_, err = m.Login("ana@example.com", "S3CRET")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
}

func TestLogin_BrokenUsersFileStillAllowsDemo(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte("{"), 0o600))

	_, err := m.LoadUsers()
	assert.Error(t, err)

	_, err = m.Login("ana@example.com", "s3cret")
	assert.ErrorIs(t, err, apierrors.ErrInvalidCredentials)

	_, err = m.Login(DemoEmail, DemoPassword)
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Login(DemoEmail, DemoPassword)
	require.NoError(t, err)

	require.NoError(t, m.Logout())
	_, err = m.Current()
	assert.ErrorIs(t, err, apierrors.ErrNotAuthenticated)

	assert.NoError(t, m.Logout(), "second logout is a no-op")
}

func TestCurrent_InvalidState(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	cases := map[string]string{
		"corrupted":         "{",
		"not authenticated": `{"isAuthenticated": false, "userId": "u1"}`,
		"missing user":      `{"isAuthenticated": true}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(m.StatePath(), []byte(content), 0o600))
			_, err := m.Current()
			assert.True(t, errors.Is(err, apierrors.ErrNotAuthenticated))
		})
	}
}

func TestUserIDFor_Stable(t *testing.T) {
	a := UserIDFor("Admin@Example.com")
	b := UserIDFor("admin@example.com ")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, UserIDFor("other@example.com"))
	assert.Len(t, a, 36)
}

func TestDefaultManager(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvHome, dir)

	m, err := DefaultManager()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "state.json"), m.StatePath())
	assert.Equal(t, filepath.Join(dir, "users.json"), m.UsersPath())
}
