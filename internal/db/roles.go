package db

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ErrSelfRevoke is returned when an admin tries to revoke their own role.
var ErrSelfRevoke = errors.New("cannot revoke your own admin role")

// UserIdent converts a numeric user ID to the string form stored on
// owned records and role grants.
func UserIdent(id uint) string {
	return strconv.Itoa(int(id))
}

// RoleStore answers role questions from the user_roles table. Roles are
// managed server-side; a user with no row has the default USER role.
type RoleStore struct {
	DB *gorm.DB
}

// GetUserRole returns the role for userID, defaulting to USER.
func (s *RoleStore) GetUserRole(userID string) string {
	var role UserRole
	err := s.DB.Where("user_id = ?", userID).Limit(1).Find(&role).Error
	if err != nil || role.UserID == "" {
		return RoleUser
	}
	return role.Role
}

// IsAdmin reports whether userID has the ADMIN role.
func (s *RoleStore) IsAdmin(userID string) bool {
	return strings.EqualFold(s.GetUserRole(userID), RoleAdmin)
}

// GrantRole upserts a role grant for userID.
func (s *RoleStore) GrantRole(userID, role, grantedBy, notes string) (*UserRole, error) {
	grant := UserRole{
		UserID:    userID,
		Role:      strings.ToUpper(role),
		GrantedAt: time.Now(),
		GrantedBy: grantedBy,
		Notes:     notes,
	}

	var existing UserRole
	err := s.DB.Where("user_id = ?", userID).Limit(1).Find(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing.UserID != "" {
		err = s.DB.Model(&UserRole{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
			"role":       grant.Role,
			"granted_at": grant.GrantedAt,
			"granted_by": grant.GrantedBy,
			"notes":      grant.Notes,
		}).Error
	} else {
		err = s.DB.Create(&grant).Error
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// RevokeAdminRole demotes userID back to USER. Revoking your own admin
// role is refused so a deployment cannot lock itself out.
func (s *RoleStore) RevokeAdminRole(userID, revokedBy string) error {
	if userID == revokedBy {
		return ErrSelfRevoke
	}
	_, err := s.GrantRole(userID, RoleUser, revokedBy, "admin role revoked")
	return err
}
