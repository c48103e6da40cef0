package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rmaeda/annotation-portal/internal/models"
)

func newTestUser(username string) *models.User {
	return &models.User{
		Username:     username,
		PasswordHash: "pbkdf2-sha256$120000$c2FsdA$a2V5",
		Role:         models.RoleAnnotator,
		CreatedAt:    time.Now(),
		IsActive:     true,
	}
}

func TestFileUserRepository_CreateAndFind(t *testing.T) {
	repo, err := NewFileUserRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.Create(newTestUser("alice")))

	user, err := repo.FindByUsername("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.True(t, user.IsActive)

	_, err = repo.FindByUsername("bob")
	require.ErrorIs(t, err, ErrNotFound)

	// usernames are case-sensitive
	_, err = repo.FindByUsername("Alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileUserRepository_CreateDuplicate(t *testing.T) {
	repo, err := NewFileUserRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.Create(newTestUser("alice")))
	require.ErrorIs(t, repo.Create(newTestUser("alice")), ErrDuplicate)

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestFileUserRepository_ListKeepsRegistrationOrder(t *testing.T) {
	repo, err := NewFileUserRepository(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.Create(newTestUser(name)))
	}

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, "carol", users[0].Username)
	require.Equal(t, "alice", users[1].Username)
	require.Equal(t, "bob", users[2].Username)
}

func TestFileUserRepository_Update(t *testing.T) {
	repo, err := NewFileUserRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.Create(newTestUser("alice")))

	user, err := repo.FindByUsername("alice")
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, repo.Update(user))

	reloaded, err := repo.FindByUsername("alice")
	require.NoError(t, err)
	require.False(t, reloaded.IsActive)

	require.ErrorIs(t, repo.Update(newTestUser("ghost")), ErrNotFound)
}

func TestFileUserRepository_Delete(t *testing.T) {
	repo, err := NewFileUserRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.Create(newTestUser("alice")))

	ok, err := repo.Delete("alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Delete("alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileUserRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileUserRepository(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte("{not json"), 0o644))

	_, err = repo.List()
	require.ErrorIs(t, err, ErrCorrupt)

	// a write must fail loudly rather than overwrite the corrupt file
	require.ErrorIs(t, repo.Create(newTestUser("alice")), ErrCorrupt)

	data, err := os.ReadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	require.Equal(t, "{not json", string(data))
}
