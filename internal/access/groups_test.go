package access

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/elostora/shop/internal/db"
	"github.com/elostora/shop/internal/models"
	"github.com/elostora/shop/internal/security"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "access.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func createAccount(t *testing.T, conn *gorm.DB, account models.Account) models.Account {
	t.Helper()
	if account.Password == "" {
		account.Password = "x"
	}
	if errCreate := conn.Create(&account).Error; errCreate != nil {
		t.Fatalf("create account %s: %v", account.Username, errCreate)
	}
	return account
}

func loadAccount(t *testing.T, conn *gorm.DB, id uint64) models.Account {
	t.Helper()
	var account models.Account
	if errFind := conn.Preload("Groups").First(&account, id).Error; errFind != nil {
		t.Fatalf("load account: %v", errFind)
	}
	return account
}

func TestEnsureManagersGroupIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	first, errFirst := EnsureManagersGroup(ctx, conn)
	if errFirst != nil {
		t.Fatalf("ensure: %v", errFirst)
	}
	second, errSecond := EnsureManagersGroup(ctx, conn)
	if errSecond != nil {
		t.Fatalf("ensure again: %v", errSecond)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same group, got %d and %d", first.ID, second.ID)
	}

	var group models.RoleGroup
	if errFind := conn.Preload("Permissions").First(&group, first.ID).Error; errFind != nil {
		t.Fatalf("load group: %v", errFind)
	}
	codes := make([]string, 0, len(group.Permissions))
	for _, perm := range group.Permissions {
		codes = append(codes, perm.Codename)
	}
	sort.Strings(codes)
	want := []string{"add_account", "change_account", "delete_account", "view_account"}
	if len(codes) != len(want) {
		t.Fatalf("expected %v, got %v", want, codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, codes)
		}
	}
	var groups int64
	conn.Model(&models.RoleGroup{}).Where("name = ?", ManagersGroupName).Count(&groups)
	if groups != 1 {
		t.Fatalf("expected one managers group, got %d", groups)
	}
}

func TestPromoteAndDemote(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(DefaultConfig())
	account := createAccount(t, conn, models.Account{Username: "mona", IsActive: true})

	for i := 0; i < 2; i++ {
		if errPromote := r.PromoteToManager(ctx, conn, account.ID); errPromote != nil {
			t.Fatalf("promote #%d: %v", i+1, errPromote)
		}
	}
	promoted := loadAccount(t, conn, account.ID)
	if !promoted.IsStaff {
		t.Fatalf("expected staff flag after promotion")
	}
	if len(promoted.Groups) != 1 || promoted.Groups[0].Name != ManagersGroupName {
		t.Fatalf("expected a single managers membership, got %v", promoted.GroupNames())
	}
	if tier := r.ResolveTier(SubjectFromAccount(promoted)); tier != TierManager {
		t.Fatalf("expected MANAGER, got %s", tier)
	}

	if errDemote := r.DemoteFromManager(ctx, conn, account.ID); errDemote != nil {
		t.Fatalf("demote: %v", errDemote)
	}
	demoted := loadAccount(t, conn, account.ID)
	if demoted.IsStaff || len(demoted.Groups) != 0 {
		t.Fatalf("expected staff cleared and no groups, got staff=%v groups=%v", demoted.IsStaff, demoted.GroupNames())
	}
}

func TestDemoteKeepsStaffWhileOtherGroupsRemain(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(DefaultConfig())
	account := createAccount(t, conn, models.Account{Username: "omar", IsActive: true})
	editors := models.RoleGroup{Name: "editors"}
	if errCreate := conn.Create(&editors).Error; errCreate != nil {
		t.Fatalf("create group: %v", errCreate)
	}
	if errAppend := conn.Model(&account).Association("Groups").Append(&editors); errAppend != nil {
		t.Fatalf("append group: %v", errAppend)
	}
	if errPromote := r.PromoteToManager(ctx, conn, account.ID); errPromote != nil {
		t.Fatalf("promote: %v", errPromote)
	}
	if errDemote := r.DemoteFromManager(ctx, conn, account.ID); errDemote != nil {
		t.Fatalf("demote: %v", errDemote)
	}
	demoted := loadAccount(t, conn, account.ID)
	if !demoted.IsStaff {
		t.Fatalf("expected staff flag to stay while editors membership remains")
	}
	if len(demoted.Groups) != 1 || demoted.Groups[0].Name != "editors" {
		t.Fatalf("expected only editors membership, got %v", demoted.GroupNames())
	}
}

func TestDemoteFailsWhenMembershipCountFails(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(DefaultConfig())
	account := createAccount(t, conn, models.Account{Username: "rana", IsActive: true})
	if errPromote := r.PromoteToManager(ctx, conn, account.ID); errPromote != nil {
		t.Fatalf("promote: %v", errPromote)
	}

	errBoom := errors.New("count unavailable")
	errRegister := conn.Callback().Query().Before("gorm:query").Register("test:fail_group_count", func(tx *gorm.DB) {
		if _, isCount := tx.Statement.Dest.(*int64); !isCount {
			return
		}
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == "RoleGroup" {
			_ = tx.AddError(errBoom)
		}
	})
	if errRegister != nil {
		t.Fatalf("register callback: %v", errRegister)
	}

	if errDemote := r.DemoteFromManager(ctx, conn, account.ID); !errors.Is(errDemote, errBoom) {
		t.Fatalf("expected count error, got %v", errDemote)
	}
	_ = conn.Callback().Query().Remove("test:fail_group_count")
	kept := loadAccount(t, conn, account.ID)
	if !kept.IsStaff || len(kept.Groups) != 1 {
		t.Fatalf("expected rollback to keep staff and membership, got staff=%v groups=%v", kept.IsStaff, kept.GroupNames())
	}
}

func TestDemoteRefusesAdminTier(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(DefaultConfig())
	admin := createAccount(t, conn, models.Account{Username: "admin", IsActive: true, IsStaff: true})

	if errDemote := r.DemoteFromManager(ctx, conn, admin.ID); !errors.Is(errDemote, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", errDemote)
	}
	if errPromote := r.PromoteToManager(ctx, conn, 9999); !errors.Is(errPromote, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", errPromote)
	}
}

func TestPromoteRefusesAdminTier(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	r := NewResolver(DefaultConfig())
	superuser := createAccount(t, conn, models.Account{Username: "elostora", IsActive: true, IsStaff: true, IsSuperuser: true})

	if errPromote := r.PromoteToManager(ctx, conn, superuser.ID); !errors.Is(errPromote, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", errPromote)
	}
	if got := loadAccount(t, conn, superuser.ID); len(got.Groups) != 0 {
		t.Fatalf("expected no group memberships, got %d", len(got.Groups))
	}
}

func TestEnsureAdminAccount(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	account, created, errEnsure := EnsureAdminAccount(ctx, conn, "elostora", "owner@example.com", "first-pass")
	if errEnsure != nil {
		t.Fatalf("ensure admin: %v", errEnsure)
	}
	if !created || !account.IsSuperuser || !account.IsStaff || !account.IsActive {
		t.Fatalf("expected created superuser, got created=%v %+v", created, account)
	}

	if errUpdate := conn.Model(&models.Account{}).Where("id = ?", account.ID).
		Updates(map[string]any{"is_active": false, "is_superuser": false}).Error; errUpdate != nil {
		t.Fatalf("tamper flags: %v", errUpdate)
	}

	again, createdAgain, errAgain := EnsureAdminAccount(ctx, conn, "Elostora", "", "second-pass")
	if errAgain != nil {
		t.Fatalf("ensure admin again: %v", errAgain)
	}
	if createdAgain || again.ID != account.ID {
		t.Fatalf("expected existing account to be reused")
	}
	if !again.IsActive || !again.IsSuperuser {
		t.Fatalf("expected admin flags restored, got %+v", again)
	}
	if !security.CheckPassword("second-pass", again.Password) {
		t.Fatalf("expected password to be reset")
	}

	var count int64
	conn.Model(&models.Account{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one account, got %d", count)
	}
}

func TestVisibleScope(t *testing.T) {
	conn := openTestDB(t)
	r := NewResolver(DefaultConfig())
	createAccount(t, conn, models.Account{Username: "root", IsActive: true, IsSuperuser: true})
	createAccount(t, conn, models.Account{Username: "ADMIN", IsActive: true})
	createAccount(t, conn, models.Account{Username: "mona", IsActive: true, IsStaff: true})
	createAccount(t, conn, models.Account{Username: "carla", IsActive: true})

	count := func(actor Subject) int64 {
		var n int64
		if errCount := conn.Model(&models.Account{}).Scopes(r.VisibleScope(actor)).Count(&n).Error; errCount != nil {
			t.Fatalf("count: %v", errCount)
		}
		return n
	}
	if got := count(superuser); got != 4 {
		t.Fatalf("expected admin to see 4 accounts, got %d", got)
	}
	if got := count(manager); got != 2 {
		t.Fatalf("expected manager to see 2 accounts, got %d", got)
	}
	if got := count(customer); got != 0 {
		t.Fatalf("expected user to see nothing, got %d", got)
	}
}
