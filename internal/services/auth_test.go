package services

import (
	"testing"

	"github.com/padoru233/trans-progress/internal/config"
	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/utils"
)

func init() {
	utils.SetJWTSecret("test-secret-for-service-testing")
}

func testAuthConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.ExpireHour = 24
	cfg.Admin.Username = "admin"
	cfg.Admin.Password = "admin123"
	return cfg
}

func TestEnsureAdminSeeds(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())

	if err := svc.EnsureAdmin(); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}

	var user models.AdminUser
	if err := db.Where("username = ?", "admin").First(&user).Error; err != nil {
		t.Fatalf("admin not seeded: %v", err)
	}
	if user.Role != "admin" || user.AuthType != "local" || !user.IsActive {
		t.Errorf("seeded admin = %+v", user)
	}
	if user.Password == "admin123" {
		t.Error("password must be stored hashed")
	}

	// Idempotent: a second call must not duplicate.
	if err := svc.EnsureAdmin(); err != nil {
		t.Fatal(err)
	}
	var count int64
	db.Model(&models.AdminUser{}).Count(&count)
	if count != 1 {
		t.Errorf("admin count = %d", count)
	}
}

func TestLoginLocal(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	if err := svc.EnsureAdmin(); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.Login(&LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User == nil || resp.User.LastLogin == nil {
		t.Error("last login should be recorded")
	}

	claims, err := utils.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Username != "admin" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	if err := svc.EnsureAdmin(); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(&LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Error("wrong password accepted")
	}
	if _, err := svc.Login(&LoginRequest{Username: "nobody", Password: "admin123"}); err == nil {
		t.Error("unknown user accepted")
	}
	if _, err := svc.Login(&LoginRequest{Username: "admin", Password: "admin123", AuthType: "magic"}); err == nil {
		t.Error("unknown auth type accepted")
	}
}

func TestLoginRejectsDisabledUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	if err := svc.EnsureAdmin(); err != nil {
		t.Fatal(err)
	}
	if err := db.Model(&models.AdminUser{}).Where("username = ?", "admin").
		Update("is_active", false).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(&LoginRequest{Username: "admin", Password: "admin123"}); err == nil {
		t.Error("disabled user accepted")
	}
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db, testAuthConfig())
	if err := svc.EnsureAdmin(); err != nil {
		t.Fatal(err)
	}
	var user models.AdminUser
	if err := db.Where("username = ?", "admin").First(&user).Error; err != nil {
		t.Fatal(err)
	}

	err := svc.ChangePassword(user.ID, &ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpass123"})
	if err == nil {
		t.Error("wrong old password accepted")
	}

	err = svc.ChangePassword(user.ID, &ChangePasswordRequest{OldPassword: "admin123", NewPassword: "newpass123"})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Login(&LoginRequest{Username: "admin", Password: "newpass123"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}
