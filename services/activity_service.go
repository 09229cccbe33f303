// services/activity_service.go
package services

import (
	"omnidrive/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity types recorded by the engine.
const (
	ActivityFolderCreated  = "folder_created"
	ActivityFileUploaded   = "file_uploaded"
	ActivityFileUpdated    = "file_updated"
	ActivityFileDeleted    = "file_deleted"
	ActivityFolderDeleted  = "folder_deleted"
	ActivityFileMoved      = "file_moved"
	ActivityFileStarred    = "file_starred"
	ActivityFileUnstarred  = "file_unstarred"
	ActivityFileProtected  = "file_protected"
	ActivityFileUnprotected = "file_unprotected"
	ActivityFileShared     = "file_shared"
	ActivityShareRevoked   = "share_revoked"
	ActivityFileDownloaded = "file_downloaded"
	ActivityVersionCreated = "file_version_created"
)

// ActivityService appends audit events. Record takes the caller's
// transaction handle so the event commits atomically with the mutation
// it describes.
type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// Record appends one audit row on the given handle. userID is nil for
// system- or anonymous-initiated events.
func (as *ActivityService) Record(tx *gorm.DB, fileID uuid.UUID, userID *uuid.UUID, activityType, description string, meta *models.RequestMeta) error {
	activity := &models.FileActivity{
		FileID:       fileID,
		UserID:       userID,
		ActivityType: activityType,
		Description:  description,
	}
	if meta != nil {
		activity.IPAddress = meta.IPAddress
		activity.UserAgent = meta.UserAgent
	}
	return tx.Create(activity).Error
}

// ListForFile returns the audit trail of one file, newest first.
func (as *ActivityService) ListForFile(fileID uuid.UUID, limit int) ([]models.FileActivity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var activities []models.FileActivity
	err := as.db.Where("file_id = ?", fileID).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// Recent returns the latest events across one owner's files.
func (as *ActivityService) Recent(ownerID uuid.UUID, limit int) ([]models.FileActivity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var activities []models.FileActivity
	err := as.db.
		Where("file_id IN (?)", as.db.Model(&models.File{}).Select("id").Where("owner_id = ?", ownerID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}
