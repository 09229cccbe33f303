// services/upload_service.go
package services

import (
	"fmt"
	"io"
	"time"

	"omnidrive/config"
	"omnidrive/models"
	"omnidrive/storage"
	"omnidrive/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadService runs the upload pipeline: validate, persist bytes,
// checksum, classify, record, audit. Bytes always hit the byte store
// before the database row exists, so a failure partway leaves at worst
// an orphaned physical file, never a row pointing at missing content.
type UploadService struct {
	db       *gorm.DB
	cfg      *config.Config
	perms    *PermissionService
	paths    *PathService
	activity *ActivityService
	store    storage.Provider
	thumbs   *ThumbnailService

	// async controls whether thumbnailing runs in a goroutine; tests
	// flip it off to observe results deterministically.
	async bool
}

func NewUploadService(db *gorm.DB, cfg *config.Config, perms *PermissionService, paths *PathService, activity *ActivityService, store storage.Provider, thumbs *ThumbnailService) *UploadService {
	return &UploadService{
		db:       db,
		cfg:      cfg,
		perms:    perms,
		paths:    paths,
		activity: activity,
		store:    store,
		thumbs:   thumbs,
		async:    true,
	}
}

// UploadInput carries one incoming byte stream and its placement.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	OwnerID     uuid.UUID
	Role        string
	ParentID    *uuid.UUID
	Description string
	Tags        []string
	Meta        *models.RequestMeta
}

// Upload validates and persists one incoming stream as a new file with
// version 1. Each gate aborts with no partial state visible.
func (us *UploadService) Upload(input *UploadInput) (*models.File, error) {
	if input.Filename == "" {
		return nil, utils.ValidationError("filename is required")
	}
	// Same charset rule as folder names; a separator here would bypass
	// the collision check and break the path invariant.
	if !utils.ValidNodeName(input.Filename) {
		return nil, utils.ValidationError("invalid filename %q", input.Filename)
	}

	extension := utils.FileExtension(input.Filename)

	if us.cfg.IsExtensionBlocked(extension) {
		return nil, utils.ValidationError("file type not allowed: .%s", extension)
	}
	if !us.cfg.IsExtensionAllowed(extension, input.Role) {
		return nil, utils.ValidationError("file type .%s is not allowed for your role", extension)
	}

	content, err := io.ReadAll(input.Reader)
	if err != nil {
		return nil, utils.StorageError("failed to read upload stream", err)
	}

	maxSize := us.cfg.MaxFileSizeForRole(input.Role)
	if int64(len(content)) > maxSize {
		return nil, utils.TooLargeError("file too large, maximum is %s", utils.FormatFileSize(maxSize))
	}

	var parent *models.File
	if input.ParentID != nil {
		parent, err = us.paths.ValidateParentFolder(us.db, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if err := us.perms.RequireCan(parent, input.OwnerID, input.Role, models.ActionWrite); err != nil {
			return nil, err
		}
	}

	if err := us.paths.EnsureNoCollision(us.db, input.OwnerID, input.ParentID, input.Filename); err != nil {
		return nil, err
	}

	storageKey, err := us.generateStorageKey(input.OwnerID, input.Filename)
	if err != nil {
		return nil, err
	}

	// Bytes first, row second (see type comment).
	if err := us.store.Save(storageKey, content); err != nil {
		return nil, utils.StorageError("failed to persist file content", err)
	}

	file := &models.File{
		Name:        input.Filename,
		Type:        models.FileTypeFile,
		Extension:   extension,
		Size:        int64(len(content)),
		Path:        us.paths.ResolvePath(parent, input.Filename),
		StoragePath: storageKey,
		ParentID:    input.ParentID,
		OwnerID:     input.OwnerID,
		MimeType:    utils.DetectMimeType(content, extension),
		Description: input.Description,
		Tags:        input.Tags,
		Checksum:    utils.ChecksumSHA256(content),
		Version:     1,
	}

	err = us.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(file).Error; err != nil {
			return err
		}
		return us.activity.Record(tx, file.ID, &input.OwnerID, ActivityFileUploaded,
			fmt.Sprintf("File '%s' uploaded", file.Name), input.Meta)
	})
	if err != nil {
		// The row never landed; remove the bytes we just wrote.
		_ = us.store.Delete(storageKey)
		return nil, utils.StorageError("failed to save file record", err)
	}

	us.triggerThumbnail(file, content)

	return file, nil
}

// UploadBatch runs the pipeline per item; one failure never aborts the
// others.
func (us *UploadService) UploadBatch(inputs []*UploadInput) (*models.BatchResult, error) {
	if len(inputs) == 0 {
		return nil, utils.ValidationError("no files provided")
	}
	if len(inputs) > us.cfg.MaxFilesPerUpload {
		return nil, utils.ValidationError("too many files, maximum is %d per upload", us.cfg.MaxFilesPerUpload)
	}

	result := &models.BatchResult{Total: len(inputs)}
	for _, input := range inputs {
		item := models.BatchItemResult{Name: input.Filename}
		file, err := us.Upload(input)
		if err != nil {
			item.Error = err.Error()
			result.ErrorCount++
		} else {
			item.ID = file.ID.String()
			item.Success = true
			item.File = &models.FileResponse{File: *file, EffectivePermissions: models.AllPermissions()}
			result.SuccessCount++
		}
		result.Results = append(result.Results, item)
	}

	return result, nil
}

// ReplaceContent uploads new content for an existing file: the previous
// content becomes an immutable FileVersion snapshot, the version counter
// is bumped atomically, and versions beyond the retention limit are
// pruned oldest-first.
func (us *UploadService) ReplaceContent(fileID, userID uuid.UUID, role string, reader io.Reader, comment string, meta *models.RequestMeta) (*models.File, error) {
	var file models.File
	if err := us.db.First(&file, "id = ?", fileID).Error; err != nil {
		return nil, utils.NotFoundError("file not found")
	}
	if !file.IsFile() {
		return nil, utils.ValidationError("content replace applies to files, not folders")
	}
	if !us.perms.Can(&file, userID, role, models.ActionRead) {
		return nil, utils.MaskAsNotFound("file not found", utils.AuthorizationError("missing read permission on %s", file.Name))
	}
	if err := us.perms.RequireCan(&file, userID, role, models.ActionWrite); err != nil {
		return nil, err
	}

	if us.cfg.IsExtensionBlocked(file.Extension) {
		return nil, utils.ValidationError("file type not allowed: .%s", file.Extension)
	}
	if !us.cfg.IsExtensionAllowed(file.Extension, role) {
		return nil, utils.ValidationError("file type .%s is not allowed for your role", file.Extension)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, utils.StorageError("failed to read upload stream", err)
	}
	maxSize := us.cfg.MaxFileSizeForRole(role)
	if int64(len(content)) > maxSize {
		return nil, utils.TooLargeError("file too large, maximum is %s", utils.FormatFileSize(maxSize))
	}

	newKey, err := us.generateStorageKey(file.OwnerID, file.Name)
	if err != nil {
		return nil, err
	}
	if err := us.store.Save(newKey, content); err != nil {
		return nil, utils.StorageError("failed to persist file content", err)
	}

	// Physical files of pruned versions are removed only after the
	// transaction commits; an orphaned file beats a dangling row.
	var pruneKeys []string

	err = us.db.Transaction(func(tx *gorm.DB) error {
		snapshot := &models.FileVersion{
			FileID:        file.ID,
			VersionNumber: file.Version,
			Size:          file.Size,
			Checksum:      file.Checksum,
			StoragePath:   file.StoragePath,
			CreatedBy:     userID,
			Comment:       comment,
		}
		if err := tx.Create(snapshot).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"storage_path": newKey,
			"size":         int64(len(content)),
			"checksum":     utils.ChecksumSHA256(content),
			"mime_type":    utils.DetectMimeType(content, file.Extension),
			"version":      gorm.Expr("version + 1"),
			"updated_at":   time.Now(),
		}
		if err := tx.Model(&models.File{}).Where("id = ?", file.ID).Updates(updates).Error; err != nil {
			return err
		}

		if us.cfg.MaxVersionsPerFile > 0 {
			var stale []models.FileVersion
			if err := tx.Where("file_id = ?", file.ID).
				Order("version_number DESC").
				Offset(us.cfg.MaxVersionsPerFile).
				Find(&stale).Error; err != nil {
				return err
			}
			for _, version := range stale {
				if err := tx.Delete(&models.FileVersion{}, "id = ?", version.ID).Error; err != nil {
					return err
				}
				pruneKeys = append(pruneKeys, version.StoragePath)
			}
		}

		return us.activity.Record(tx, file.ID, &userID, ActivityVersionCreated,
			fmt.Sprintf("File '%s' content replaced (version %d)", file.Name, file.Version+1), meta)
	})
	if err != nil {
		_ = us.store.Delete(newKey)
		return nil, utils.StorageError("failed to record new version", err)
	}

	for _, key := range pruneKeys {
		_ = us.store.Delete(key)
	}

	if err := us.db.First(&file, "id = ?", fileID).Error; err != nil {
		return nil, err
	}

	us.triggerThumbnail(&file, content)

	return &file, nil
}

// Versions lists the immutable snapshots of a file, newest first.
func (us *UploadService) Versions(fileID, userID uuid.UUID, role string) ([]models.FileVersion, error) {
	var file models.File
	if err := us.db.First(&file, "id = ?", fileID).Error; err != nil {
		return nil, utils.NotFoundError("file not found")
	}
	if !us.perms.Can(&file, userID, role, models.ActionRead) {
		return nil, utils.MaskAsNotFound("file not found", utils.AuthorizationError("missing read permission on %s", file.Name))
	}

	var versions []models.FileVersion
	err := us.db.Where("file_id = ?", fileID).Order("version_number DESC").Find(&versions).Error
	return versions, err
}

// generateStorageKey derives the physical location: a per-owner prefix
// plus an unguessable random suffix, so uploads never collide on
// filename.
func (us *UploadService) generateStorageKey(ownerID uuid.UUID, filename string) (string, error) {
	token, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", utils.StorageError("failed to generate storage key", err)
	}
	return fmt.Sprintf("%s/%s_%s", ownerID.String()[:8], token, utils.CleanFileName(filename)), nil
}

func (us *UploadService) triggerThumbnail(file *models.File, content []byte) {
	if !utils.IsImageExtension(file.Extension) {
		return
	}
	if us.async {
		go us.thumbs.Generate(file.ID, content)
	} else {
		us.thumbs.Generate(file.ID, content)
	}
}
