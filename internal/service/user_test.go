package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/repo"
	dbtest "github.com/Skotchmaster/user_management/internal/testutil"
)

type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.objects[key] = data
	return key, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjects) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

type userFixture struct {
	svc     *UserService
	repo    *repo.GormRepo
	objects *memObjects
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	r := &repo.GormRepo{DB: dbtest.NewSeededDB(t)}
	objs := newMemObjects()
	return &userFixture{
		svc:     &UserService{Store: r, Objects: objs},
		repo:    r,
		objects: objs,
	}
}

func (f *userFixture) account(t *testing.T, username, email string) *models.Account {
	t.Helper()
	a := &models.Account{Username: username, Email: email, Provider: models.ProviderLocal}
	require.NoError(t, f.repo.SaveAccount(context.Background(), a))
	return a
}

func TestUserService_Profile(t *testing.T) {
	t.Parallel()

	f := newUserFixture(t)
	a := f.account(t, "alice", "alice@example.com")

	got, err := f.svc.Profile(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = f.svc.Profile(context.Background(), a.ID+100)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUserService_UpdateUsername(t *testing.T) {
	t.Parallel()

	f := newUserFixture(t)
	ctx := context.Background()
	a := f.account(t, "alice", "alice@example.com")
	f.account(t, "bob", "bob@example.com")

	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{name: "too short", username: "al", wantErr: ErrValidation},
		{name: "too long", username: strings.Repeat("a", 21), wantErr: ErrValidation},
		{name: "taken", username: "bob", wantErr: ErrUsernameTaken},
		{name: "unchanged", username: "alice"},
		{name: "renamed", username: "alicia"},
	}

	for _, tt := range tests {
		got, err := f.svc.UpdateUsername(ctx, a.ID, tt.username)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, tt.name)
			continue
		}
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.username, got.Username, tt.name)
	}

	stored, err := f.repo.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", stored.Username)

	_, err = f.svc.UpdateUsername(ctx, a.ID+100, "ghost")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUserService_UpdateProfilePicture(t *testing.T) {
	t.Parallel()

	f := newUserFixture(t)
	ctx := context.Background()
	a := f.account(t, "alice", "alice@example.com")

	first, err := f.svc.UpdateProfilePicture(ctx, a.ID, PictureUpload{Filename: "me.png", ContentType: "image/png", Data: []byte("one")})
	require.NoError(t, err)
	require.NotNil(t, first.ProfilePicture)
	firstKey := *first.ProfilePicture
	assert.True(t, strings.HasPrefix(firstKey, "profile-pictures/"))
	assert.True(t, strings.HasSuffix(firstKey, ".png"))

	second, err := f.svc.UpdateProfilePicture(ctx, a.ID, PictureUpload{Filename: "me.jpg", ContentType: "image/jpeg", Data: []byte("two")})
	require.NoError(t, err)
	secondKey := *second.ProfilePicture
	assert.NotEqual(t, firstKey, secondKey)
	assert.Equal(t, []string{secondKey}, f.objects.keys())

	stored, err := f.repo.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ProfilePicture)
	assert.Equal(t, secondKey, *stored.ProfilePicture)
}

func TestUserService_UpdateProfilePicture_OldDeleteFailureIsIgnored(t *testing.T) {
	t.Parallel()

	f := newUserFixture(t)
	ctx := context.Background()
	a := f.account(t, "alice", "alice@example.com")

	_, err := f.svc.UpdateProfilePicture(ctx, a.ID, PictureUpload{Filename: "a.png", Data: []byte("one")})
	require.NoError(t, err)

	f.objects.deleteErr = errors.New("s3 unavailable")
	got, err := f.svc.UpdateProfilePicture(ctx, a.ID, PictureUpload{Filename: "b.png", Data: []byte("two")})
	require.NoError(t, err)
	assert.NotNil(t, got.ProfilePicture)
}

func TestUserService_UpdateProfilePicture_Errors(t *testing.T) {
	t.Parallel()

	f := newUserFixture(t)
	ctx := context.Background()
	a := f.account(t, "alice", "alice@example.com")

	_, err := f.svc.UpdateProfilePicture(ctx, a.ID, PictureUpload{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrValidation)

	boom := errors.New("s3 unavailable")
	f.objects.putErr = boom
	_, err = f.svc.UpdateProfilePicture(ctx, a.ID, PictureUpload{Filename: "a.png", Data: []byte("x")})
	assert.ErrorIs(t, err, boom)

	stored, err := f.repo.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ProfilePicture)
}

func TestUserService_DeleteProfilePicture(t *testing.T) {
	t.Parallel()

	f := newUserFixture(t)
	ctx := context.Background()
	a := f.account(t, "alice", "alice@example.com")

	// nothing to delete
	got, err := f.svc.DeleteProfilePicture(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ProfilePicture)

	_, err = f.svc.UpdateProfilePicture(ctx, a.ID, PictureUpload{Filename: "a.png", Data: []byte("x")})
	require.NoError(t, err)

	got, err = f.svc.DeleteProfilePicture(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ProfilePicture)
	assert.Empty(t, f.objects.keys())

	stored, err := f.repo.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ProfilePicture)
}

func TestUserService_DeleteProfilePicture_KeepsProviderAvatarObject(t *testing.T) {
	t.Parallel()

	f := newUserFixture(t)
	ctx := context.Background()
	avatar := "https://avatars.example.com/u/1"
	a := &models.Account{Username: "gina", Email: "gina@example.com", Provider: models.ProviderGitHub, ProfilePicture: &avatar}
	require.NoError(t, f.repo.SaveAccount(ctx, a))

	f.objects.deleteErr = errors.New("must not be called")
	got, err := f.svc.DeleteProfilePicture(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ProfilePicture)
}
