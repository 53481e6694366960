package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"flightlogbook/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate the core tables.
	if err := db.AutoMigrate(&Sighting{}, &Photo{}, &CacheEntry{}, &User{}, &APIKey{}, &UserRole{}); err != nil {
		return nil, err
	}

	return db, nil
}

// EnsureBootstrapAdmin makes sure there is at least one admin user
// corresponding to the bootstrap credentials in config, with an ADMIN
// role grant. If a user with that username already exists, it is left
// as-is.
func EnsureBootstrapAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil
	}

	var existing User
	err := db.Where("username = ?", cfg.AdminUser).Limit(1).Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != 0 {
		return ensureAdminRole(db, existing)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := User{
		Username:     cfg.AdminUser,
		PasswordHash: string(hash),
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	return ensureAdminRole(db, admin)
}

// EnsureBootstrapAPIKey seeds an active bearer key for the bootstrap
// admin from APP_ADMIN_API_KEY, so a fresh deployment can call the API
// before any key has been minted. If the key value already exists but
// belongs to another user, it is reassigned to admin.
func EnsureBootstrapAPIKey(db *gorm.DB, cfg *config.Config) error {
	if cfg.AdminAPIKey == "" {
		return nil
	}

	var admin User
	if err := db.Where("username = ?", cfg.AdminUser).First(&admin).Error; err != nil {
		return err
	}

	var existing APIKey
	if err := db.Where("key = ?", cfg.AdminAPIKey).Limit(1).Find(&existing).Error; err != nil {
		return err
	}
	if existing.ID != 0 {
		if existing.UserID != admin.ID || !existing.Active {
			existing.UserID = admin.ID
			existing.Name = "bootstrap"
			existing.Active = true
			return db.Save(&existing).Error
		}
		return nil
	}

	return db.Create(&APIKey{
		UserID: admin.ID,
		Name:   "bootstrap",
		Key:    cfg.AdminAPIKey,
		Active: true,
	}).Error
}

func ensureAdminRole(db *gorm.DB, admin User) error {
	store := &RoleStore{DB: db}
	if store.IsAdmin(UserIdent(admin.ID)) {
		return nil
	}
	_, err := store.GrantRole(UserIdent(admin.ID), RoleAdmin, "bootstrap", "created at startup")
	return err
}
