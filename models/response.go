package models

import "time"

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type Meta struct {
	Page       int `json:"page,omitempty"`
	Limit      int `json:"limit,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// FileResponse is a File plus the computed fields every read surface
// returns: the effective permission set and whether any share exists.
type FileResponse struct {
	File
	EffectivePermissions PermissionSet `json:"permissions"`
	Shared               bool          `json:"shared"`
	URL                  string        `json:"url,omitempty"`
	ThumbnailURL         string        `json:"thumbnail_url,omitempty"`
}

type FileListResult struct {
	Files    []FileResponse `json:"files"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	HasMore  bool           `json:"has_more"`
}

type FolderCreateRequest struct {
	Name        string     `json:"name" validate:"required,max=255,node_name"`
	ParentID    *string    `json:"parent_id,omitempty"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Starred     bool       `json:"starred"`
	Protected   bool       `json:"protected"`
}

type FileUpdateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=255,node_name"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type MoveRequest struct {
	FileIDs  []string `json:"file_ids" validate:"required,min=1"`
	ParentID *string  `json:"parent_id,omitempty"`
}

type FileSearchQuery struct {
	Q         string     `form:"q" json:"q"`
	Path      string     `form:"path" json:"path"`
	FileType  string     `form:"file_type" json:"file_type"`
	Extension string     `form:"extension" json:"extension"`
	Starred   *bool      `form:"starred" json:"starred"`
	Protected *bool      `form:"protected" json:"protected"`
	DateFrom  *time.Time `form:"date_from" json:"date_from"`
	DateTo    *time.Time `form:"date_to" json:"date_to"`
	SizeMin   *int64     `form:"size_min" json:"size_min"`
	SizeMax   *int64     `form:"size_max" json:"size_max"`
}

type SearchResult struct {
	Query       string         `json:"query"`
	Total       int            `json:"total"`
	Results     []FileResponse `json:"results"`
	Facets      SearchFacets   `json:"facets"`
	Suggestions []string       `json:"suggestions"`
}

type SearchFacets struct {
	Extensions map[string]int `json:"extensions"`
	Sizes      map[string]int `json:"sizes"`
}

type ShareRequest struct {
	Password     string     `json:"password,omitempty"`
	MaxDownloads *int       `json:"max_downloads,omitempty" validate:"omitempty,min=1"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AllowUpload  bool       `json:"allow_upload"`
}

type PermissionGrantRequest struct {
	UserID    string     `json:"user_id" validate:"required,uuid"`
	CanRead   bool       `json:"can_read"`
	CanWrite  bool       `json:"can_write"`
	CanDelete bool       `json:"can_delete"`
	CanShare  bool       `json:"can_share"`
	CanManage bool       `json:"can_manage"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// BatchItemResult reports one item of a batch operation; batches never
// abort on a single failure.
type BatchItemResult struct {
	ID      string        `json:"id,omitempty"`
	Name    string        `json:"name,omitempty"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	File    *FileResponse `json:"file,omitempty"`
}

type BatchResult struct {
	Total        int               `json:"total"`
	SuccessCount int               `json:"success_count"`
	ErrorCount   int               `json:"error_count"`
	Results      []BatchItemResult `json:"results"`
}

type StorageStats struct {
	TotalFiles     int64            `json:"total_files"`
	TotalFolders   int64            `json:"total_folders"`
	TotalSize      int64            `json:"total_size"`
	UsedSpace      int64            `json:"used_space"`
	AvailableSpace int64            `json:"available_space"`
	FileTypes      map[string]int64 `json:"file_types"`
	RecentActivity []FileActivity   `json:"recent_activity"`
}

// RequestMeta carries the audit context of the triggering request.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
