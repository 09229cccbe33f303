package controllers

import (
	"fmt"
	"net/http"

	"omnidrive/middleware"
	"omnidrive/models"
	"omnidrive/services"
	"omnidrive/utils"

	"github.com/gin-gonic/gin"
)

// ShareController exposes link management for authenticated users and
// the anonymous token surface for everyone else.
type ShareController struct {
	shares *services.ShareService
	files  *services.FileService
}

func NewShareController(shares *services.ShareService, files *services.FileService) *ShareController {
	return &ShareController{shares: shares, files: files}
}

// CreateShare handles POST /files/:id/shares
func (sc *ShareController) CreateShare(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	share, err := sc.shares.CreateShare(fileID, middleware.UserID(c), middleware.UserRole(c), &req, requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Share link created", share)
}

// ListShares handles GET /files/:id/shares
func (sc *ShareController) ListShares(c *gin.Context) {
	fileID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	shares, err := sc.shares.ListShares(fileID, middleware.UserID(c), middleware.UserRole(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Shares retrieved successfully", shares)
}

// UpdateShare handles PUT /shares/:id
func (sc *ShareController) UpdateShare(c *gin.Context) {
	shareID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	share, err := sc.shares.UpdateShare(shareID, middleware.UserID(c), middleware.UserRole(c), &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Share updated", share)
}

// DeactivateShare handles DELETE /shares/:id
func (sc *ShareController) DeactivateShare(c *gin.Context) {
	shareID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := sc.shares.DeactivateShare(shareID, middleware.UserID(c), middleware.UserRole(c), requestMeta(c)); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Share revoked", nil)
}

// sharePassword reads the password from the header first, the query
// string second.
func sharePassword(c *gin.Context) string {
	if password := c.GetHeader("X-Share-Password"); password != "" {
		return password
	}
	return c.Query("password")
}

// ResolveShare handles GET /public/shares/:token
func (sc *ShareController) ResolveShare(c *gin.Context) {
	share, file, err := sc.shares.ResolveShare(c.Param("token"), sharePassword(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Share resolved", gin.H{
		"share": share,
		"file":  file,
	})
}

// DownloadShared handles GET /public/shares/:token/download
func (sc *ShareController) DownloadShared(c *gin.Context) {
	share, file, err := sc.shares.ResolveShare(c.Param("token"), sharePassword(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if !file.IsFile() {
		utils.ErrorResponse(c, http.StatusBadRequest, "Folders cannot be downloaded", nil)
		return
	}

	content, err := sc.files.ReadContent(file)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if err := sc.shares.RecordDownload(share, file, requestMeta(c)); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.MimeType, content)
}

// UploadShared handles POST /public/shares/:token/upload
func (sc *ShareController) UploadShared(c *gin.Context) {
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

	file, err := sc.shares.ShareUpload(c.Param("token"), sharePassword(c), header.Filename, opened, requestMeta(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "File uploaded successfully", file)
}
