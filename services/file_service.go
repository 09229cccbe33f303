// services/file_service.go
package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"omnidrive/config"
	"omnidrive/models"
	"omnidrive/storage"
	"omnidrive/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileService implements the tree operations: folder creation, listing,
// search, metadata updates, flag toggles, move and recursive delete.
// Authorization failures on direct lookups are masked as not-found so a
// caller cannot probe for the existence of nodes it may not read.
type FileService struct {
	db       *gorm.DB
	cfg      *config.Config
	perms    *PermissionService
	paths    *PathService
	activity *ActivityService
	store    storage.Provider
	thumbs   *ThumbnailService
}

func NewFileService(db *gorm.DB, cfg *config.Config, perms *PermissionService, paths *PathService, activity *ActivityService, store storage.Provider, thumbs *ThumbnailService) *FileService {
	return &FileService{
		db:       db,
		cfg:      cfg,
		perms:    perms,
		paths:    paths,
		activity: activity,
		store:    store,
		thumbs:   thumbs,
	}
}

// GetFile loads one node and enforces read access. A node the principal
// cannot read reports not-found, same as a node that does not exist.
func (fs *FileService) GetFile(fileID, userID uuid.UUID, role string) (*models.File, error) {
	var file models.File
	if err := fs.db.First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("file not found")
		}
		return nil, err
	}

	if !fs.perms.Can(&file, userID, role, models.ActionRead) {
		return nil, utils.MaskAsNotFound("file not found",
			utils.AuthorizationError("missing read permission on %s", file.Name))
	}

	return &file, nil
}

// BuildResponse decorates a file with its computed read-surface fields.
func (fs *FileService) BuildResponse(file *models.File, userID uuid.UUID, role string) *models.FileResponse {
	resp := &models.FileResponse{
		File:                 *file,
		EffectivePermissions: fs.perms.EffectivePermissions(file, userID, role),
	}

	var shareCount int64
	fs.db.Model(&models.FileShare{}).Where("file_id = ? AND is_active = ?", file.ID, true).Count(&shareCount)
	resp.Shared = shareCount > 0

	if file.IsFile() {
		resp.URL = fmt.Sprintf("%s/api/files/%s/download", fs.cfg.AppURL, file.ID)
		if utils.IsImageExtension(file.Extension) {
			if _, err := os.Stat(fs.thumbs.Path(file.ID)); err == nil {
				resp.ThumbnailURL = fmt.Sprintf("%s/api/files/%s/thumbnail", fs.cfg.AppURL, file.ID)
			}
		}
	}

	return resp
}

// ListOptions narrows and orders a listing.
type ListOptions struct {
	Path      string
	ParentID  *uuid.UUID
	FileType  string
	Category  string
	Starred   *bool
	Protected *bool
	Shared    *bool
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

var listSortColumns = map[string]string{
	"name":        "name",
	"size":        "size",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"accessed_at": "accessed_at",
}

// ListFiles returns the nodes readable by the principal, filtered and
// paginated. Folders always sort before files.
func (fs *FileService) ListFiles(userID uuid.UUID, role string, opts *ListOptions) (*models.FileListResult, error) {
	query := fs.perms.ReadableScope(fs.db.Model(&models.File{}), userID, role)

	if opts.ParentID != nil {
		query = query.Where("parent_id = ?", *opts.ParentID)
	} else if opts.Path != "" && opts.Path != "/" {
		prefix := strings.TrimRight(opts.Path, "/")
		query = query.Where("path LIKE ?", prefix+"/%")
	}

	if opts.FileType != "" {
		query = query.Where("type = ?", opts.FileType)
	}
	if opts.Category != "" {
		if exts := utils.CategoryExtensions(opts.Category); len(exts) > 0 {
			query = query.Where("extension IN ?", exts)
		}
	}
	if opts.Starred != nil {
		query = query.Where("starred = ?", *opts.Starred)
	}
	if opts.Protected != nil {
		query = query.Where("protected = ?", *opts.Protected)
	}
	if opts.Shared != nil {
		sharedSub := fs.db.Model(&models.FileShare{}).Select("file_id").Where("is_active = ?", true)
		if *opts.Shared {
			query = query.Where("id IN (?)", sharedSub)
		} else {
			query = query.Where("id NOT IN (?)", sharedSub)
		}
	}
	if opts.Search != "" {
		like := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	column, ok := listSortColumns[opts.SortBy]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if strings.EqualFold(opts.SortOrder, "desc") {
		direction = "DESC"
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	var files []models.File
	err := query.
		Order("CASE WHEN type = 'folder' THEN 0 ELSE 1 END").
		Order(fmt.Sprintf("%s %s", column, direction)).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&files).Error
	if err != nil {
		return nil, err
	}

	result := &models.FileListResult{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(page*pageSize) < total,
	}
	for i := range files {
		result.Files = append(result.Files, *fs.BuildResponse(&files[i], userID, role))
	}

	return result, nil
}

// SearchFiles runs a filtered search over the principal's readable
// scope and aggregates facets over the matches. Facet or suggestion
// failures degrade to empty, never fail the search.
func (fs *FileService) SearchFiles(userID uuid.UUID, role string, q *models.FileSearchQuery, page, pageSize int) (*models.SearchResult, error) {
	query := fs.perms.ReadableScope(fs.db.Model(&models.File{}), userID, role)

	if q.Q != "" {
		like := "%" + strings.ToLower(q.Q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if q.Path != "" && q.Path != "/" {
		query = query.Where("path LIKE ?", strings.TrimRight(q.Path, "/")+"/%")
	}
	if q.FileType != "" {
		query = query.Where("type = ?", q.FileType)
	}
	if q.Extension != "" {
		query = query.Where("extension = ?", strings.ToLower(strings.TrimPrefix(q.Extension, ".")))
	}
	if q.Starred != nil {
		query = query.Where("starred = ?", *q.Starred)
	}
	if q.Protected != nil {
		query = query.Where("protected = ?", *q.Protected)
	}
	if q.DateFrom != nil {
		query = query.Where("created_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("created_at <= ?", *q.DateTo)
	}
	if q.SizeMin != nil {
		query = query.Where("size >= ?", *q.SizeMin)
	}
	if q.SizeMax != nil {
		query = query.Where("size <= ?", *q.SizeMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	var files []models.File
	if err := query.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&files).Error; err != nil {
		return nil, err
	}

	result := &models.SearchResult{
		Query: q.Q,
		Total: int(total),
		Facets: models.SearchFacets{
			Extensions: map[string]int{},
			Sizes:      map[string]int{},
		},
	}
	for i := range files {
		result.Results = append(result.Results, *fs.BuildResponse(&files[i], userID, role))
		if files[i].Extension != "" {
			result.Facets.Extensions[files[i].Extension]++
		}
		result.Facets.Sizes[sizeBucket(files[i].Size)]++
	}
	result.Suggestions = fs.suggestNames(userID, role, q.Q)

	return result, nil
}

func sizeBucket(size int64) string {
	switch {
	case size < 1<<20:
		return "small"
	case size < 100<<20:
		return "medium"
	default:
		return "large"
	}
}

func (fs *FileService) suggestNames(userID uuid.UUID, role, term string) []string {
	if term == "" {
		return nil
	}
	var names []string
	err := fs.perms.ReadableScope(fs.db.Model(&models.File{}), userID, role).
		Where("LOWER(name) LIKE ?", strings.ToLower(term)+"%").
		Order("accessed_at DESC").
		Limit(5).
		Pluck("name", &names).Error
	if err != nil {
		return nil
	}
	return names
}

// CreateFolder creates a new folder node. Folders have no content and
// no versions, only a place in the tree.
func (fs *FileService) CreateFolder(userID uuid.UUID, role string, req *models.FolderCreateRequest, meta *models.RequestMeta) (*models.File, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	var parentID *uuid.UUID
	var parent *models.File
	if req.ParentID != nil && *req.ParentID != "" {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return nil, utils.ValidationError("invalid parent id")
		}
		parent, err = fs.paths.ValidateParentFolder(fs.db, id)
		if err != nil {
			return nil, err
		}
		if err := fs.perms.RequireCan(parent, userID, role, models.ActionWrite); err != nil {
			return nil, err
		}
		parentID = &id
	}

	if err := fs.paths.EnsureNoCollision(fs.db, userID, parentID, req.Name); err != nil {
		return nil, err
	}

	folder := &models.File{
		Name:        req.Name,
		Type:        models.FileTypeFolder,
		Path:        fs.paths.ResolvePath(parent, req.Name),
		ParentID:    parentID,
		OwnerID:     userID,
		Description: req.Description,
		Tags:        req.Tags,
		Starred:     req.Starred,
		Protected:   req.Protected,
		Visibility:  models.VisibilityPrivate,
	}

	err := fs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(folder).Error; err != nil {
			return err
		}
		return fs.activity.Record(tx, folder.ID, &userID, ActivityFolderCreated,
			fmt.Sprintf("Folder '%s' created", folder.Name), meta)
	})
	if err != nil {
		return nil, err
	}

	return folder, nil
}

// UpdateFile applies metadata changes. A rename is a tree operation: it
// re-checks collisions and rebases descendant paths in the same
// transaction.
func (fs *FileService) UpdateFile(fileID, userID uuid.UUID, role string, req *models.FileUpdateRequest, meta *models.RequestMeta) (*models.File, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	file, err := fs.GetFile(fileID, userID, role)
	if err != nil {
		return nil, err
	}
	if err := fs.perms.RequireCan(file, userID, role, models.ActionWrite); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	renamed := false
	var newPath string

	if req.Name != nil && *req.Name != file.Name {
		if *req.Name == "" {
			return nil, utils.ValidationError("name cannot be empty")
		}
		if err := fs.paths.EnsureNoCollision(fs.db, file.OwnerID, file.ParentID, *req.Name); err != nil {
			return nil, err
		}
		renamed = true
		var parent *models.File
		if file.ParentID != nil {
			parent, err = fs.paths.ValidateParentFolder(fs.db, *file.ParentID)
			if err != nil {
				return nil, err
			}
		}
		newPath = fs.paths.ResolvePath(parent, *req.Name)
		updates["name"] = *req.Name
		updates["path"] = newPath
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Tags != nil {
		updates["tags"] = req.Tags
	}

	if len(updates) > 0 {
		err = fs.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.File{}).Where("id = ?", file.ID).Updates(updates).Error; err != nil {
				return err
			}
			if renamed && file.IsFolder() {
				descendants, err := fs.paths.Descendants(tx, file.ID)
				if err != nil {
					return err
				}
				if err := fs.paths.RebasePaths(tx, file.Path, newPath, descendants); err != nil {
					return err
				}
			}
			return fs.activity.Record(tx, file.ID, &userID, ActivityFileUpdated,
				fmt.Sprintf("'%s' metadata updated", file.Name), meta)
		})
		if err != nil {
			return nil, err
		}
	}

	if err := fs.db.First(file, "id = ?", fileID).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// SetVisibility changes who can see a node without an explicit grant.
// Requires the manage capability.
func (fs *FileService) SetVisibility(fileID, userID uuid.UUID, role, visibility string, meta *models.RequestMeta) (*models.File, error) {
	switch visibility {
	case models.VisibilityPrivate, models.VisibilityShared, models.VisibilityPublic:
	default:
		return nil, utils.ValidationError("invalid visibility %q", visibility)
	}

	file, err := fs.GetFile(fileID, userID, role)
	if err != nil {
		return nil, err
	}
	if err := fs.perms.RequireCan(file, userID, role, models.ActionManage); err != nil {
		return nil, err
	}

	err = fs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.File{}).Where("id = ?", file.ID).
			Update("visibility", visibility).Error; err != nil {
			return err
		}
		return fs.activity.Record(tx, file.ID, &userID, ActivityFileUpdated,
			fmt.Sprintf("'%s' visibility set to %s", file.Name, visibility), meta)
	})
	if err != nil {
		return nil, err
	}

	file.Visibility = visibility
	return file, nil
}

// ToggleStar flips the starred flag atomically in the database, so
// concurrent toggles never lose an update.
func (fs *FileService) ToggleStar(fileID, userID uuid.UUID, role string, meta *models.RequestMeta) (*models.File, error) {
	file, err := fs.GetFile(fileID, userID, role)
	if err != nil {
		return nil, err
	}
	if err := fs.perms.RequireCan(file, userID, role, models.ActionWrite); err != nil {
		return nil, err
	}

	err = fs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.File{}).Where("id = ?", file.ID).
			Update("starred", gorm.Expr("NOT starred")).Error; err != nil {
			return err
		}
		var updated models.File
		if err := tx.Select("starred").First(&updated, "id = ?", file.ID).Error; err != nil {
			return err
		}
		file.Starred = updated.Starred
		activityType := ActivityFileUnstarred
		if updated.Starred {
			activityType = ActivityFileStarred
		}
		return fs.activity.Record(tx, file.ID, &userID, activityType,
			fmt.Sprintf("'%s' star toggled", file.Name), meta)
	})
	if err != nil {
		return nil, err
	}

	return file, nil
}

// ToggleProtected flips the protection flag. Only the owner or an admin
// may change protection; grants never confer it.
func (fs *FileService) ToggleProtected(fileID, userID uuid.UUID, role string, meta *models.RequestMeta) (*models.File, error) {
	file, err := fs.GetFile(fileID, userID, role)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != userID && role != models.RoleAdmin {
		return nil, utils.AuthorizationError("only the owner may change protection on %s", file.Name)
	}

	err = fs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.File{}).Where("id = ?", file.ID).
			Update("protected", gorm.Expr("NOT protected")).Error; err != nil {
			return err
		}
		var updated models.File
		if err := tx.Select("protected").First(&updated, "id = ?", file.ID).Error; err != nil {
			return err
		}
		file.Protected = updated.Protected
		activityType := ActivityFileUnprotected
		if updated.Protected {
			activityType = ActivityFileProtected
		}
		return fs.activity.Record(tx, file.ID, &userID, activityType,
			fmt.Sprintf("'%s' protection toggled", file.Name), meta)
	})
	if err != nil {
		return nil, err
	}

	return file, nil
}

// Move reparents one node. For folders the cycle check runs first and
// all descendant paths are rebased in the same transaction; a rejected
// move leaves no state change.
func (fs *FileService) Move(fileID, userID uuid.UUID, role string, newParentID *uuid.UUID, meta *models.RequestMeta) (*models.File, error) {
	file, err := fs.GetFile(fileID, userID, role)
	if err != nil {
		return nil, err
	}
	if err := fs.perms.RequireCan(file, userID, role, models.ActionWrite); err != nil {
		return nil, err
	}
	if file.Protected {
		return nil, utils.AuthorizationError("'%s' is protected and cannot be moved", file.Name)
	}

	var parent *models.File
	if newParentID != nil {
		parent, err = fs.paths.ValidateParentFolder(fs.db, *newParentID)
		if err != nil {
			return nil, err
		}
		if err := fs.perms.RequireCan(parent, userID, role, models.ActionWrite); err != nil {
			return nil, err
		}
		if file.IsFolder() {
			if err := fs.paths.EnsureNotDescendant(fs.db, file.ID, *newParentID); err != nil {
				return nil, err
			}
		}
	}

	// No-op move.
	if equalParent(file.ParentID, newParentID) {
		return file, nil
	}

	if err := fs.paths.EnsureNoCollision(fs.db, file.OwnerID, newParentID, file.Name); err != nil {
		return nil, err
	}

	newPath := fs.paths.ResolvePath(parent, file.Name)

	err = fs.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"parent_id": newParentID,
			"path":      newPath,
		}
		if err := tx.Model(&models.File{}).Where("id = ?", file.ID).Updates(updates).Error; err != nil {
			return err
		}
		if file.IsFolder() {
			descendants, err := fs.paths.Descendants(tx, file.ID)
			if err != nil {
				return err
			}
			if err := fs.paths.RebasePaths(tx, file.Path, newPath, descendants); err != nil {
				return err
			}
		}
		return fs.activity.Record(tx, file.ID, &userID, ActivityFileMoved,
			fmt.Sprintf("'%s' moved to %s", file.Name, newPath), meta)
	})
	if err != nil {
		return nil, err
	}

	file.ParentID = newParentID
	file.Path = newPath
	return file, nil
}

func equalParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// MoveBatch moves each node independently; one failure never aborts the
// others.
func (fs *FileService) MoveBatch(userID uuid.UUID, role string, req *models.MoveRequest, meta *models.RequestMeta) (*models.BatchResult, error) {
	if len(req.FileIDs) == 0 {
		return nil, utils.ValidationError("no files provided")
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && *req.ParentID != "" {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return nil, utils.ValidationError("invalid parent id")
		}
		parentID = &id
	}

	result := &models.BatchResult{Total: len(req.FileIDs)}
	for _, rawID := range req.FileIDs {
		item := models.BatchItemResult{ID: rawID}
		fileID, err := uuid.Parse(rawID)
		if err != nil {
			item.Error = "invalid file id"
			result.ErrorCount++
			result.Results = append(result.Results, item)
			continue
		}
		file, err := fs.Move(fileID, userID, role, parentID, meta)
		if err != nil {
			item.Error = err.Error()
			result.ErrorCount++
		} else {
			item.Name = file.Name
			item.Success = true
			result.SuccessCount++
		}
		result.Results = append(result.Results, item)
	}

	return result, nil
}

// Delete removes a node and, for folders, its entire subtree. Rows go
// first, in one transaction, deepest nodes first; physical content and
// thumbnails are removed only after the commit. Audit rows are written
// per node and survive the deletion.
func (fs *FileService) Delete(fileID, userID uuid.UUID, role string, meta *models.RequestMeta) error {
	file, err := fs.GetFile(fileID, userID, role)
	if err != nil {
		return err
	}
	if err := fs.perms.RequireCan(file, userID, role, models.ActionDelete); err != nil {
		return err
	}
	if file.Protected {
		return utils.AuthorizationError("'%s' is protected and cannot be deleted", file.Name)
	}

	descendants, err := fs.paths.Descendants(fs.db, file.ID)
	if err != nil {
		return err
	}

	// Deepest nodes first, root last, so the parent_id chain never
	// dangles mid-transaction.
	nodes := append([]models.File{*file}, descendants...)
	ids := make([]uuid.UUID, len(nodes))
	for i := range nodes {
		ids[i] = nodes[i].ID
	}

	var storageKeys []string
	var thumbIDs []uuid.UUID
	for i := range nodes {
		if nodes[i].IsFile() && nodes[i].StoragePath != "" {
			storageKeys = append(storageKeys, nodes[i].StoragePath)
		}
		if nodes[i].IsFile() && utils.IsImageExtension(nodes[i].Extension) {
			thumbIDs = append(thumbIDs, nodes[i].ID)
		}
	}

	var versionKeys []string
	err = fs.db.Transaction(func(tx *gorm.DB) error {
		var versions []models.FileVersion
		if err := tx.Where("file_id IN ?", ids).Find(&versions).Error; err != nil {
			return err
		}
		for _, v := range versions {
			versionKeys = append(versionKeys, v.StoragePath)
		}

		if err := tx.Where("file_id IN ?", ids).Delete(&models.FilePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id IN ?", ids).Delete(&models.FileShare{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id IN ?", ids).Delete(&models.FileVersion{}).Error; err != nil {
			return err
		}

		for i := len(nodes) - 1; i >= 0; i-- {
			node := &nodes[i]
			if err := tx.Delete(&models.File{}, "id = ?", node.ID).Error; err != nil {
				return err
			}
			activityType := ActivityFileDeleted
			if node.IsFolder() {
				activityType = ActivityFolderDeleted
			}
			if err := fs.activity.Record(tx, node.ID, &userID, activityType,
				fmt.Sprintf("'%s' deleted", node.Name), meta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Physical cleanup after commit; an orphaned file beats a dangling
	// row.
	for _, key := range storageKeys {
		_ = fs.store.Delete(key)
	}
	for _, key := range versionKeys {
		_ = fs.store.Delete(key)
	}
	for _, id := range thumbIDs {
		fs.thumbs.Remove(id)
	}

	return nil
}

// Download reads one file's content, touches its access time and
// records the download.
func (fs *FileService) Download(fileID, userID uuid.UUID, role string, meta *models.RequestMeta) (*models.File, []byte, error) {
	file, err := fs.GetFile(fileID, userID, role)
	if err != nil {
		return nil, nil, err
	}
	if !file.IsFile() {
		return nil, nil, utils.ValidationError("folders cannot be downloaded")
	}

	content, err := fs.store.Read(file.StoragePath)
	if err != nil {
		return nil, nil, utils.StorageError("failed to read file content", err)
	}

	err = fs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.File{}).Where("id = ?", file.ID).
			Update("accessed_at", time.Now()).Error; err != nil {
			return err
		}
		return fs.activity.Record(tx, file.ID, &userID, ActivityFileDownloaded,
			fmt.Sprintf("'%s' downloaded", file.Name), meta)
	})
	if err != nil {
		return nil, nil, err
	}

	return file, content, nil
}

// ReadContent loads raw bytes for a file whose access was already
// authorized, e.g. through a valid share token.
func (fs *FileService) ReadContent(file *models.File) ([]byte, error) {
	content, err := fs.store.Read(file.StoragePath)
	if err != nil {
		return nil, utils.StorageError("failed to read file content", err)
	}
	return content, nil
}

// ListActivity returns the audit trail of a file the principal may
// read.
func (fs *FileService) ListActivity(fileID, userID uuid.UUID, role string, limit int) ([]models.FileActivity, error) {
	if _, err := fs.GetFile(fileID, userID, role); err != nil {
		return nil, err
	}
	return fs.activity.ListForFile(fileID, limit)
}

// Stats aggregates one owner's storage usage against the role quota.
func (fs *FileService) Stats(userID uuid.UUID, role string) (*models.StorageStats, error) {
	stats := &models.StorageStats{FileTypes: map[string]int64{}}

	if err := fs.db.Model(&models.File{}).
		Where("owner_id = ? AND type = ?", userID, models.FileTypeFile).
		Count(&stats.TotalFiles).Error; err != nil {
		return nil, err
	}
	if err := fs.db.Model(&models.File{}).
		Where("owner_id = ? AND type = ?", userID, models.FileTypeFolder).
		Count(&stats.TotalFolders).Error; err != nil {
		return nil, err
	}

	var used *int64
	if err := fs.db.Model(&models.File{}).
		Where("owner_id = ? AND type = ?", userID, models.FileTypeFile).
		Select("SUM(size)").Scan(&used).Error; err != nil {
		return nil, err
	}
	if used != nil {
		stats.TotalSize = *used
	}
	stats.UsedSpace = stats.TotalSize

	quota := fs.cfg.PolicyForRole(role).StorageQuota
	if quota > stats.UsedSpace {
		stats.AvailableSpace = quota - stats.UsedSpace
	}

	type typeCount struct {
		MimeType string
		Count    int64
	}
	var counts []typeCount
	if err := fs.db.Model(&models.File{}).
		Where("owner_id = ? AND type = ?", userID, models.FileTypeFile).
		Select("mime_type, COUNT(*) as count").
		Group("mime_type").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, tc := range counts {
		stats.FileTypes[utils.FileCategory(tc.MimeType)] += tc.Count
	}

	recent, err := fs.activity.Recent(userID, 10)
	if err == nil {
		stats.RecentActivity = recent
	}

	return stats, nil
}
