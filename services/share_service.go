// services/share_service.go
package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"omnidrive/models"
	"omnidrive/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareService manages tokenized public links. Resolution by token is
// the anonymous entry point; everything else requires the share
// capability on the underlying file.
type ShareService struct {
	db       *gorm.DB
	perms    *PermissionService
	activity *ActivityService
	uploads  *UploadService
}

func NewShareService(db *gorm.DB, perms *PermissionService, activity *ActivityService, uploads *UploadService) *ShareService {
	return &ShareService{db: db, perms: perms, activity: activity, uploads: uploads}
}

// CreateShare issues a new link for one file. A principal without read
// access gets not-found; one with read but without the share capability
// gets an authorization error.
func (ss *ShareService) CreateShare(fileID, userID uuid.UUID, role string, req *models.ShareRequest, meta *models.RequestMeta) (*models.FileShare, error) {
	var file models.File
	if err := ss.db.First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("file not found")
		}
		return nil, err
	}
	if !ss.perms.Can(&file, userID, role, models.ActionRead) {
		return nil, utils.MaskAsNotFound("file not found",
			utils.AuthorizationError("missing read permission on %s", file.Name))
	}
	if err := ss.perms.RequireCan(&file, userID, role, models.ActionShare); err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, utils.ValidationError("expiry must be in the future")
	}
	if req.AllowUpload && !file.IsFolder() {
		return nil, utils.ValidationError("upload links require a folder target")
	}

	share := &models.FileShare{
		FileID:       file.ID,
		MaxDownloads: req.MaxDownloads,
		ExpiresAt:    req.ExpiresAt,
		CreatedBy:    userID,
		IsActive:     true,
		AllowUpload:  req.AllowUpload,
	}

	if req.Password != "" {
		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %v", err)
		}
		share.Password = hashed
	}

	// Token collisions are astronomically unlikely; retry a few times
	// anyway since the column is unique.
	err := ss.db.Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < 3; attempt++ {
			token, err := utils.GenerateSecureToken(32)
			if err != nil {
				return err
			}
			share.Token = token

			var count int64
			if err := tx.Model(&models.FileShare{}).Where("token = ?", token).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				break
			}
		}
		if err := tx.Create(share).Error; err != nil {
			return err
		}
		return ss.activity.Record(tx, file.ID, &userID, ActivityFileShared,
			fmt.Sprintf("Share link created for '%s'", file.Name), meta)
	})
	if err != nil {
		return nil, err
	}

	return share, nil
}

// ResolveShare validates a token and returns the share plus its file.
// Unknown tokens are not-found; known-but-dead links (expired,
// deactivated, download limit reached) report an expired state so the
// caller can say why. A wrong password is an authorization failure.
func (ss *ShareService) ResolveShare(token, password string) (*models.FileShare, *models.File, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, utils.ValidationError("share token is required")
	}

	var share models.FileShare
	if err := ss.db.First(&share, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NotFoundError("share not found")
		}
		return nil, nil, err
	}

	if !share.IsValid() {
		return nil, nil, utils.ExpiredError("this share link is no longer available")
	}

	if share.HasPassword() {
		if password == "" {
			return nil, nil, utils.AuthorizationError("this share link requires a password")
		}
		if !utils.CheckPasswordHash(password, share.Password) {
			return nil, nil, utils.AuthorizationError("incorrect share password")
		}
	}

	var file models.File
	if err := ss.db.First(&file, "id = ?", share.FileID).Error; err != nil {
		return nil, nil, utils.NotFoundError("shared file no longer exists")
	}

	now := time.Now()
	if err := ss.db.Model(&models.FileShare{}).Where("id = ?", share.ID).
		Update("last_accessed", now).Error; err != nil {
		return nil, nil, err
	}
	share.LastAccessed = &now

	return &share, &file, nil
}

// RecordDownload bumps the share's counter atomically. Validity was
// checked at resolve time: a resolve that succeeded always gets its
// download, even when this increment reaches the limit.
func (ss *ShareService) RecordDownload(share *models.FileShare, file *models.File, meta *models.RequestMeta) error {
	return ss.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FileShare{}).Where("id = ?", share.ID).
			Update("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
			return err
		}
		return ss.activity.Record(tx, file.ID, nil, ActivityFileDownloaded,
			fmt.Sprintf("'%s' downloaded via share link", file.Name), meta)
	})
}

// UpdateShare changes the settings of an existing link. Requires the
// share capability on the file.
func (ss *ShareService) UpdateShare(shareID, userID uuid.UUID, role string, req *models.ShareRequest) (*models.FileShare, error) {
	share, _, err := ss.loadOwnedShare(shareID, userID, role)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"max_downloads": req.MaxDownloads,
		"expires_at":    req.ExpiresAt,
	}
	if req.Password != "" {
		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %v", err)
		}
		updates["password"] = hashed
	}

	if err := ss.db.Model(&models.FileShare{}).Where("id = ?", share.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := ss.db.First(share, "id = ?", share.ID).Error; err != nil {
		return nil, err
	}
	return share, nil
}

// DeactivateShare kills a link without deleting its history.
func (ss *ShareService) DeactivateShare(shareID, userID uuid.UUID, role string, meta *models.RequestMeta) error {
	share, file, err := ss.loadOwnedShare(shareID, userID, role)
	if err != nil {
		return err
	}

	return ss.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FileShare{}).Where("id = ?", share.ID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return ss.activity.Record(tx, file.ID, &userID, ActivityShareRevoked,
			fmt.Sprintf("Share link for '%s' revoked", file.Name), meta)
	})
}

// ListShares returns all links on one file. Requires the share
// capability.
func (ss *ShareService) ListShares(fileID, userID uuid.UUID, role string) ([]models.FileShare, error) {
	var file models.File
	if err := ss.db.First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("file not found")
		}
		return nil, err
	}
	if !ss.perms.Can(&file, userID, role, models.ActionRead) {
		return nil, utils.MaskAsNotFound("file not found",
			utils.AuthorizationError("missing read permission on %s", file.Name))
	}
	if err := ss.perms.RequireCan(&file, userID, role, models.ActionShare); err != nil {
		return nil, err
	}

	var shares []models.FileShare
	err := ss.db.Where("file_id = ?", fileID).Order("created_at DESC").Find(&shares).Error
	return shares, err
}

// ShareUpload accepts an anonymous upload through an upload-enabled
// link. The upload runs as the link's creator, under the creator's role
// policy.
func (ss *ShareService) ShareUpload(token, password, filename string, reader io.Reader, meta *models.RequestMeta) (*models.File, error) {
	share, target, err := ss.ResolveShare(token, password)
	if err != nil {
		return nil, err
	}
	if !share.AllowUpload {
		return nil, utils.AuthorizationError("this share link does not accept uploads")
	}
	if !target.IsFolder() {
		return nil, utils.ValidationError("upload target is not a folder")
	}

	var creator models.User
	if err := ss.db.First(&creator, "id = ?", share.CreatedBy).Error; err != nil {
		return nil, utils.NotFoundError("share owner no longer exists")
	}

	return ss.uploads.Upload(&UploadInput{
		Reader:   reader,
		Filename: filename,
		OwnerID:  creator.ID,
		Role:     creator.Role,
		ParentID: &target.ID,
		Meta:     meta,
	})
}

func (ss *ShareService) loadOwnedShare(shareID, userID uuid.UUID, role string) (*models.FileShare, *models.File, error) {
	var share models.FileShare
	if err := ss.db.First(&share, "id = ?", shareID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NotFoundError("share not found")
		}
		return nil, nil, err
	}

	var file models.File
	if err := ss.db.First(&file, "id = ?", share.FileID).Error; err != nil {
		return nil, nil, utils.NotFoundError("shared file no longer exists")
	}

	if err := ss.perms.RequireCan(&file, userID, role, models.ActionShare); err != nil {
		return nil, nil, err
	}
	return &share, &file, nil
}
