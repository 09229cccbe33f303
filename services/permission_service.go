// services/permission_service.go
package services

import (
	"errors"
	"time"

	"omnidrive/models"
	"omnidrive/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionService computes effective capability sets and manages
// explicit grants. Resolution order, first match wins:
//
//  1. admin role            -> all capabilities
//  2. file owner            -> all capabilities
//  3. live explicit grant   -> the grant's five booleans verbatim
//  4. public visibility     -> read only
//  5. no match              -> nothing
//
// SHARED visibility carries no extra capabilities; it behaves like
// PRIVATE here.
type PermissionService struct {
	db *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// EffectivePermissions computes the capability set for a principal on
// one file. Expired grants count as absent, not as their stored values.
func (ps *PermissionService) EffectivePermissions(file *models.File, userID uuid.UUID, role string) models.PermissionSet {
	if role == models.RoleAdmin {
		return models.AllPermissions()
	}

	if file.OwnerID == userID {
		return models.AllPermissions()
	}

	var grant models.FilePermission
	err := ps.db.Where("file_id = ? AND user_id = ?", file.ID, userID).First(&grant).Error
	if err == nil && !grant.IsExpired() {
		return grant.Set()
	}

	if file.Visibility == models.VisibilityPublic {
		return models.ReadOnlyPermissions()
	}

	return models.PermissionSet{}
}

// Can is a projection of EffectivePermissions onto one action.
func (ps *PermissionService) Can(file *models.File, userID uuid.UUID, role, action string) bool {
	return ps.EffectivePermissions(file, userID, role).Allows(action)
}

// RequireCan returns an authorization error when the principal lacks
// the capability.
func (ps *PermissionService) RequireCan(file *models.File, userID uuid.UUID, role, action string) error {
	if !ps.Can(file, userID, role, action) {
		return utils.AuthorizationError("missing %s permission on %s", action, file.Name)
	}
	return nil
}

// ReadableScope narrows a files query to the nodes the principal may
// read: owned, public, or covered by a live read grant. Admins bypass
// the filter entirely.
func (ps *PermissionService) ReadableScope(query *gorm.DB, userID uuid.UUID, role string) *gorm.DB {
	if role == models.RoleAdmin {
		return query
	}
	return query.Where(
		"owner_id = ? OR visibility = ? OR EXISTS ("+
			"SELECT 1 FROM file_permissions p WHERE p.file_id = files.id AND p.user_id = ? "+
			"AND p.can_read = ? AND (p.expires_at IS NULL OR p.expires_at > ?))",
		userID, models.VisibilityPublic, userID, true, time.Now(),
	)
}

// Grant creates or replaces the explicit permission row for
// (file, user). Requires the manage capability on the file.
func (ps *PermissionService) Grant(file *models.File, granterID uuid.UUID, granterRole string, req *models.PermissionGrantRequest) (*models.FilePermission, error) {
	if err := ps.RequireCan(file, granterID, granterRole, models.ActionManage); err != nil {
		return nil, err
	}

	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, utils.ValidationError("invalid user id")
	}
	if targetID == file.OwnerID {
		return nil, utils.ValidationError("owner permissions cannot be overridden by a grant")
	}

	grant := &models.FilePermission{
		FileID:    file.ID,
		UserID:    targetID,
		CanRead:   req.CanRead,
		CanWrite:  req.CanWrite,
		CanDelete: req.CanDelete,
		CanShare:  req.CanShare,
		CanManage: req.CanManage,
		GrantedBy: granterID,
		GrantedAt: time.Now(),
		ExpiresAt: req.ExpiresAt,
	}

	// Re-granting replaces, never duplicates.
	err = ps.db.Transaction(func(tx *gorm.DB) error {
		var existing models.FilePermission
		findErr := tx.Where("file_id = ? AND user_id = ?", file.ID, targetID).First(&existing).Error
		if findErr == nil {
			grant.ID = existing.ID
			return tx.Model(&existing).Select(
				"can_read", "can_write", "can_delete", "can_share", "can_manage",
				"granted_by", "granted_at", "expires_at",
			).Updates(grant).Error
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}
		return tx.Create(grant).Error
	})
	if err != nil {
		return nil, err
	}

	return grant, nil
}

// Revoke removes an explicit grant. Requires manage capability.
func (ps *PermissionService) Revoke(file *models.File, granterID uuid.UUID, granterRole string, targetID uuid.UUID) error {
	if err := ps.RequireCan(file, granterID, granterRole, models.ActionManage); err != nil {
		return err
	}

	result := ps.db.Where("file_id = ? AND user_id = ?", file.ID, targetID).Delete(&models.FilePermission{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NotFoundError("no grant for that user on %s", file.Name)
	}
	return nil
}

// ListGrants returns the explicit grants on a file. Requires manage
// capability.
func (ps *PermissionService) ListGrants(file *models.File, userID uuid.UUID, role string) ([]models.FilePermission, error) {
	if err := ps.RequireCan(file, userID, role, models.ActionManage); err != nil {
		return nil, err
	}

	var grants []models.FilePermission
	if err := ps.db.Where("file_id = ?", file.ID).Order("granted_at DESC").Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}
