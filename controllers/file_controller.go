package controllers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"omnidrive/config"
	"omnidrive/middleware"
	"omnidrive/models"
	"omnidrive/services"
	"omnidrive/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FileController exposes the tree, upload, versioning and permission
// operations over HTTP. It stays thin: parse, call a service, map the
// error kind to a status.
type FileController struct {
	cfg     *config.Config
	files   *services.FileService
	uploads *services.UploadService
	perms   *services.PermissionService
	thumbs  *services.ThumbnailService
}

func NewFileController(cfg *config.Config, files *services.FileService, uploads *services.UploadService, perms *services.PermissionService, thumbs *services.ThumbnailService) *FileController {
	return &FileController{
		cfg:     cfg,
		files:   files,
		uploads: uploads,
		perms:   perms,
		thumbs:  thumbs,
	}
}

func requestMeta(c *gin.Context) *models.RequestMeta {
	return &models.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// CreateFolder handles POST /folders
func (fc *FileController) CreateFolder(c *gin.Context) {
	var req models.FolderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	folder, err := fc.files.CreateFolder(middleware.UserID(c), middleware.UserRole(c), &req, requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Folder created successfully", fc.files.BuildResponse(folder, middleware.UserID(c), middleware.UserRole(c)))
}

// ListFiles handles GET /files
func (fc *FileController) ListFiles(c *gin.Context) {
	opts := &services.ListOptions{
		Path:      c.Query("path"),
		FileType:  c.Query("type"),
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "name"),
		SortOrder: c.DefaultQuery("sort_order", "asc"),
	}
	opts.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	opts.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	if raw := c.Query("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parent id", nil)
			return
		}
		opts.ParentID = &id
	}
	for query, target := range map[string]**bool{
		"starred":   &opts.Starred,
		"protected": &opts.Protected,
		"shared":    &opts.Shared,
	} {
		if raw := c.Query(query); raw != "" {
			if parsed, err := strconv.ParseBool(raw); err == nil {
				*target = &parsed
			}
		}
	}

	result, err := fc.files.ListFiles(middleware.UserID(c), middleware.UserRole(c), opts)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	totalPages := int(result.Total) / result.PageSize
	if int(result.Total)%result.PageSize > 0 {
		totalPages++
	}
	utils.PaginatedResponse(c, "Files retrieved successfully", result, &models.Meta{
		Page:       result.Page,
		Limit:      result.PageSize,
		Total:      int(result.Total),
		TotalPages: totalPages,
	})
}

// SearchFiles handles GET /files/search
func (fc *FileController) SearchFiles(c *gin.Context) {
	var query models.FileSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid search query", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	result, err := fc.files.SearchFiles(middleware.UserID(c), middleware.UserRole(c), &query, page, pageSize)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Search completed", result)
}

// GetFile handles GET /files/:id
func (fc *FileController) GetFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, err := fc.files.GetFile(fileID, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "File retrieved successfully", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
}

// Upload handles POST /files/upload (multipart, one or many files)
func (fc *FileController) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid multipart form", nil)
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		if single := form.File["file"]; len(single) > 0 {
			fileHeaders = single
		}
	}
	if len(fileHeaders) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "No files provided", nil)
		return
	}

	var parentID *uuid.UUID
	if raw := c.PostForm("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parent id", nil)
			return
		}
		parentID = &id
	}

	var inputs []*services.UploadInput
	for _, header := range fileHeaders {
		opened, err := header.Open()
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("Could not read %s", header.Filename), nil)
			return
		}
		defer opened.Close()

		inputs = append(inputs, &services.UploadInput{
			Reader:      opened,
			Filename:    header.Filename,
			OwnerID:     middleware.UserID(c),
			Role:        middleware.UserRole(c),
			ParentID:    parentID,
			Description: c.PostForm("description"),
			Meta:        requestMeta(c),
		})
	}

	if len(inputs) == 1 {
		file, err := fc.uploads.Upload(inputs[0])
		if err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
		utils.CreatedResponse(c, "File uploaded successfully", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
		return
	}

	result, err := fc.uploads.UploadBatch(inputs)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Upload batch processed", result)
}

// ReplaceContent handles PUT /files/:id/content
func (fc *FileController) ReplaceContent(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "No file provided", nil)
		return
	}
	opened, err := header.Open()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Could not read file", nil)
		return
	}
	defer opened.Close()

	file, err := fc.uploads.ReplaceContent(fileID, middleware.UserID(c), middleware.UserRole(c),
		opened, c.PostForm("comment"), requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "File content replaced", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
}

// Versions handles GET /files/:id/versions
func (fc *FileController) Versions(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	versions, err := fc.uploads.Versions(fileID, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Versions retrieved successfully", versions)
}

// Download handles GET /files/:id/download
func (fc *FileController) Download(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, content, err := fc.files.Download(fileID, middleware.UserID(c), middleware.UserRole(c), requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.MimeType, content)
}

// Thumbnail handles GET /files/:id/thumbnail. A missing thumbnail is a
// 404, never an error.
func (fc *FileController) Thumbnail(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := fc.files.GetFile(fileID, middleware.UserID(c), middleware.UserRole(c)); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	path := fc.thumbs.Path(fileID)
	if _, err := os.Stat(path); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Thumbnail not available", nil)
		return
	}
	c.File(path)
}

// UpdateFile handles PUT /files/:id
func (fc *FileController) UpdateFile(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.FileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	file, err := fc.files.UpdateFile(fileID, middleware.UserID(c), middleware.UserRole(c), &req, requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "File updated successfully", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
}

// SetVisibility handles PUT /files/:id/visibility
func (fc *FileController) SetVisibility(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Visibility string `json:"visibility" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	file, err := fc.files.SetVisibility(fileID, middleware.UserID(c), middleware.UserRole(c), req.Visibility, requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Visibility updated", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
}

// ToggleStar handles POST /files/:id/star
func (fc *FileController) ToggleStar(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, err := fc.files.ToggleStar(fileID, middleware.UserID(c), middleware.UserRole(c), requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Star toggled", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
}

// ToggleProtected handles POST /files/:id/protect
func (fc *FileController) ToggleProtected(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, err := fc.files.ToggleProtected(fileID, middleware.UserID(c), middleware.UserRole(c), requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Protection toggled", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
}

// Move handles POST /files/:id/move
func (fc *FileController) Move(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		ParentID *string `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && *req.ParentID != "" {
		id, err := uuid.Parse(*req.ParentID)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parent id", nil)
			return
		}
		parentID = &id
	}

	file, err := fc.files.Move(fileID, middleware.UserID(c), middleware.UserRole(c), parentID, requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "File moved successfully", fc.files.BuildResponse(file, middleware.UserID(c), middleware.UserRole(c)))
}

// MoveBatch handles POST /files/move
func (fc *FileController) MoveBatch(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	result, err := fc.files.MoveBatch(middleware.UserID(c), middleware.UserRole(c), &req, requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Move batch processed", result)
}

// Delete handles DELETE /files/:id
func (fc *FileController) Delete(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := fc.files.Delete(fileID, middleware.UserID(c), middleware.UserRole(c), requestMeta(c)); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Deleted successfully", nil)
}

// Activity handles GET /files/:id/activity
func (fc *FileController) Activity(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	activities, err := fc.files.ListActivity(fileID, middleware.UserID(c), middleware.UserRole(c), limit)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Activity retrieved successfully", activities)
}

// Stats handles GET /files/stats
func (fc *FileController) Stats(c *gin.Context) {
	stats, err := fc.files.Stats(middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Stats retrieved successfully", stats)
}

// GrantPermission handles POST /files/:id/permissions
func (fc *FileController) GrantPermission(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.PermissionGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	file, err := fc.files.GetFile(fileID, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	grant, err := fc.perms.Grant(file, middleware.UserID(c), middleware.UserRole(c), &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Permission granted", grant)
}

// ListPermissions handles GET /files/:id/permissions
func (fc *FileController) ListPermissions(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	file, err := fc.files.GetFile(fileID, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	grants, err := fc.perms.ListGrants(file, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Permissions retrieved successfully", grants)
}

// RevokePermission handles DELETE /files/:id/permissions/:userId
func (fc *FileController) RevokePermission(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user id", nil)
		return
	}

	file, err := fc.files.GetFile(fileID, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if err := fc.perms.Revoke(file, middleware.UserID(c), middleware.UserRole(c), targetID); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Permission revoked", nil)
}
