package accounts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/elostora/shop/internal/access"
	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, errOpen)
	require.NoError(t, db.Migrate(conn))
	return NewService(conn, access.NewResolver(access.DefaultConfig())), conn
}

func TestRegisterCreatesProfile(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "carla", "carla@example.com", "hunter2")
	require.NoError(t, err)
	require.True(t, account.IsActive)
	require.False(t, account.IsStaff)
	require.NotNil(t, account.Profile)
	require.Equal(t, "Egypt", account.Profile.Country)

	var profiles int64
	require.NoError(t, conn.Model(&models.Profile{}).Where("account_id = ?", account.ID).Count(&profiles).Error)
	require.EqualValues(t, 1, profiles)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ELOSTORA", "x@example.com", "hunter2")
	require.ErrorIs(t, err, ErrReservedUsername)

	_, err = svc.Register(ctx, "bob", "bob@example.com", "abc")
	require.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(ctx, "bob", "bob@example.com", "hunter2")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Bob", "other@example.com", "hunter2")
	require.ErrorIs(t, err, ErrUsernameTaken)
	_, err = svc.Register(ctx, "robert", "BOB@example.com", "hunter2")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	account, err := svc.Register(ctx, "dina", "dina@example.com", "secret1")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "dina", "secret1")
	require.NoError(t, err)
	require.Equal(t, account.ID, got.ID)
	require.NotNil(t, got.LastLoginAt)

	_, err = svc.Authenticate(ctx, "dina", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, conn.Model(&models.Profile{}).Where("account_id = ?", account.ID).Update("blocked", true).Error)
	_, err = svc.Authenticate(ctx, "dina", "secret1")
	require.ErrorIs(t, err, ErrAccountBlocked)

	require.NoError(t, conn.Model(&models.Account{}).Where("id = ?", account.ID).Update("is_active", false).Error)
	_, err = svc.Authenticate(ctx, "dina", "secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "emad", "emad@example.com", "first1")
	require.NoError(t, err)

	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	stale, err := svc.IssueResetCode(ctx, "emad@example.com")
	require.NoError(t, err)
	code, err := svc.IssueResetCode(ctx, "EMAD@example.com")
	require.NoError(t, err)
	require.Len(t, code, 6)

	var pending int64
	require.NoError(t, conn.Model(&models.PasswordReset{}).Count(&pending).Error)
	require.EqualValues(t, 1, pending, "issuing a new code replaces the old one")
	if stale != code {
		require.ErrorIs(t, svc.CheckResetCode(ctx, stale), ErrInvalidResetCode)
	}

	require.NoError(t, svc.CheckResetCode(ctx, code))
	require.NoError(t, svc.ResetPassword(ctx, code, "second2"))
	_, err = svc.Authenticate(ctx, "emad", "second2")
	require.NoError(t, err)
	require.ErrorIs(t, svc.ResetPassword(ctx, code, "third33"), ErrInvalidResetCode)

	_, err = svc.IssueResetCode(ctx, "missing@example.com")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestPasswordResetExpires(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "fady", "fady@example.com", "first1")
	require.NoError(t, err)

	issued := time.Now().UTC()
	svc.now = func() time.Time { return issued }
	code, err := svc.IssueResetCode(ctx, "fady@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(6 * time.Minute) }
	err = svc.ResetPassword(ctx, code, "second2")
	require.True(t, errors.Is(err, ErrResetCodeExpired), "got %v", err)

	var remaining int64
	require.NoError(t, conn.Model(&models.PasswordReset{}).Count(&remaining).Error)
	require.EqualValues(t, 0, remaining)
}

func TestUpdateSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner, err := svc.Register(ctx, "gina", "gina@example.com", "secret1")
	require.NoError(t, err)
	other, err := svc.Register(ctx, "hany", "hany@example.com", "secret1")
	require.NoError(t, err)

	phone := "0100"
	country := "Morocco"
	updated, err := svc.UpdateSelf(ctx, access.SubjectFromAccount(owner), owner.ID, SelfUpdate{Phone: &phone, Country: &country})
	require.NoError(t, err)
	require.Equal(t, "0100", updated.Profile.Phone)
	require.Equal(t, "Morocco", updated.Profile.Country)
	require.False(t, updated.IsStaff)

	_, err = svc.UpdateSelf(ctx, access.SubjectFromAccount(owner), other.ID, SelfUpdate{Phone: &phone})
	require.ErrorIs(t, err, ErrForbidden)

	taken := "HANY@example.com"
	_, err = svc.UpdateSelf(ctx, access.SubjectFromAccount(owner), owner.ID, SelfUpdate{Email: &taken})
	require.ErrorIs(t, err, ErrEmailTaken)
}
