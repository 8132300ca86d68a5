package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/repo"
	"github.com/Skotchmaster/user_management/internal/testutil"
)

func newRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return &repo.GormRepo{DB: testutil.NewSeededDB(t)}
}

func createAccount(t *testing.T, r *repo.GormRepo, username, email string) *models.Account {
	t.Helper()

	role, err := r.FindRoleByName(context.Background(), models.RoleUser)
	require.NoError(t, err)

	a := &models.Account{
		Username: username,
		Email:    email,
		Provider: models.ProviderLocal,
		Roles:    []models.Role{*role},
	}
	require.NoError(t, r.SaveAccount(context.Background(), a))
	require.NotZero(t, a.ID)
	return a
}

func TestGormRepo_SaveAndFindAccount(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	created := createAccount(t, r, "alice", "alice@example.com")

	byEmail, err := r.FindAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, []string{"ROLE_USER"}, byEmail.RoleNames())
	assert.False(t, byEmail.CreatedAt.IsZero())

	byName, err := r.FindAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byID, err := r.FindAccountByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	exists, err := r.ExistsByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = r.ExistsByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormRepo_FindAccount_NotFound(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.FindAccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = r.FindAccountByID(ctx, 999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestGormRepo_SaveAccount_UniqueConstraints(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	createAccount(t, r, "alice", "alice@example.com")

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{name: "duplicate email", username: "alice2", email: "alice@example.com"},
		{name: "duplicate username", username: "alice", email: "other@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.SaveAccount(ctx, &models.Account{Username: tt.username, Email: tt.email, Provider: models.ProviderLocal})
			require.Error(t, err)
			assert.ErrorIs(t, err, repo.ErrConflict)
		})
	}
}

func TestGormRepo_SaveAccount_UpdateRefreshesTimestamp(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	a := createAccount(t, r, "alice", "alice@example.com")
	before := a.UpdatedAt

	time.Sleep(10 * time.Millisecond)
	a.Username = "alice_renamed"
	require.NoError(t, r.SaveAccount(ctx, a))

	got, err := r.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_renamed", got.Username)
	assert.True(t, got.UpdatedAt.After(before))
	assert.Len(t, got.Roles, 1)
}

func TestGormRepo_Roles(t *testing.T) {
	r := &repo.GormRepo{DB: testutil.NewDB(t)}
	ctx := context.Background()

	count, err := r.CountRoles(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, r.CreateRoles(ctx, []models.Role{{Name: models.RoleUser}, {Name: models.RoleAdmin}}))

	count, err = r.CountRoles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	role, err := r.FindRoleByName(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role.Name)

	err = r.CreateRoles(ctx, []models.Role{{Name: models.RoleUser}})
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestGormRepo_SaveRefreshToken_ReplacesPrevious(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := createAccount(t, r, "alice", "alice@example.com")
	exp := time.Now().Add(time.Hour).UTC()

	require.NoError(t, r.SaveRefreshToken(ctx, &models.RefreshToken{AccountID: a.ID, Token: "first", ExpiresAt: exp}))
	require.NoError(t, r.SaveRefreshToken(ctx, &models.RefreshToken{AccountID: a.ID, Token: "second", ExpiresAt: exp}))

	_, err := r.FindRefreshTokenByToken(ctx, "first")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	current, err := r.FindRefreshTokenByAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", current.Token)

	var count int64
	require.NoError(t, r.DB.Model(&models.RefreshToken{}).Where("account_id = ?", a.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGormRepo_DeleteRefreshToken(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := createAccount(t, r, "alice", "alice@example.com")

	rt := &models.RefreshToken{AccountID: a.ID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, r.SaveRefreshToken(ctx, rt))

	require.NoError(t, r.DeleteRefreshToken(ctx, rt))
	_, err := r.FindRefreshTokenByToken(ctx, "tok")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.SaveRefreshToken(ctx, rt))
	require.NoError(t, r.DeleteRefreshTokenByAccount(ctx, a.ID))
	require.NoError(t, r.DeleteRefreshTokenByAccount(ctx, a.ID))

	_, err = r.FindRefreshTokenByAccount(ctx, a.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
