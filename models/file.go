package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FileTypeFile   = "file"
	FileTypeFolder = "folder"
)

const (
	VisibilityPrivate = "private"
	VisibilityShared  = "shared"
	VisibilityPublic  = "public"
)

// Capability names used by the permission engine.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionShare  = "share"
	ActionManage = "manage"
)

// File is a node in the hierarchical tree: either a file or a folder.
// Paths are denormalized (stored, not derived), unique per owner; folder
// moves recompute every descendant path in the same transaction.
type File struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null;index:idx_files_parent_name" json:"name" validate:"required,max=255"`
	Type        string     `gorm:"size:20;not null;default:file" json:"type"`
	Extension   string     `gorm:"size:16" json:"extension,omitempty"`
	Size        int64      `gorm:"not null;default:0" json:"size"`
	Path        string     `gorm:"not null;uniqueIndex:idx_files_owner_path" json:"path"`
	StoragePath string     `json:"-"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index:idx_files_parent_name" json:"parent_id,omitempty"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_files_owner_path" json:"owner_id"`
	MimeType    string     `gorm:"size:100" json:"mime_type,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `gorm:"serializer:json" json:"tags"`
	Starred     bool       `gorm:"not null;default:false" json:"starred"`
	Protected   bool       `gorm:"not null;default:false" json:"protected"`
	Visibility  string     `gorm:"size:20;not null;default:private" json:"visibility"`
	Version     int        `gorm:"not null;default:1" json:"version"`
	Checksum    string     `gorm:"size:64" json:"checksum,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AccessedAt  time.Time  `json:"accessed_at"`

	Permissions []FilePermission `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
	Shares      []FileShare      `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
	Versions    []FileVersion    `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.AccessedAt.IsZero() {
		f.AccessedAt = time.Now()
	}
	return nil
}

func (f *File) IsFolder() bool {
	return f.Type == FileTypeFolder
}

func (f *File) IsFile() bool {
	return f.Type == FileTypeFile
}

// PermissionSet is the effective capability map computed for a
// (principal, file) pair. It is never stored; FilePermission is.
type PermissionSet struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
	Share  bool `json:"share"`
	Manage bool `json:"manage"`
}

func (p PermissionSet) Allows(action string) bool {
	switch action {
	case ActionRead:
		return p.Read
	case ActionWrite:
		return p.Write
	case ActionDelete:
		return p.Delete
	case ActionShare:
		return p.Share
	case ActionManage:
		return p.Manage
	}
	return false
}

// AllPermissions is what owners and admins get.
func AllPermissions() PermissionSet {
	return PermissionSet{Read: true, Write: true, Delete: true, Share: true, Manage: true}
}

// ReadOnlyPermissions is what public visibility grants to everyone else.
func ReadOnlyPermissions() PermissionSet {
	return PermissionSet{Read: true}
}

// FilePermission is an explicit grant of capabilities to one user over
// one file. Unique per (file, user); re-granting replaces the row.
// Expiry is passive: checked at evaluation time, never purged.
type FilePermission struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FileID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_file_permissions_file_user" json:"file_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_file_permissions_file_user" json:"user_id"`
	CanRead   bool       `gorm:"not null;default:true" json:"can_read"`
	CanWrite  bool       `gorm:"not null;default:false" json:"can_write"`
	CanDelete bool       `gorm:"not null;default:false" json:"can_delete"`
	CanShare  bool       `gorm:"not null;default:false" json:"can_share"`
	CanManage bool       `gorm:"not null;default:false" json:"can_manage"`
	GrantedBy uuid.UUID  `gorm:"type:uuid;not null" json:"granted_by"`
	GrantedAt time.Time  `gorm:"not null" json:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (p *FilePermission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.GrantedAt.IsZero() {
		p.GrantedAt = time.Now()
	}
	return nil
}

func (p *FilePermission) IsExpired() bool {
	return p.ExpiresAt != nil && time.Now().After(*p.ExpiresAt)
}

func (p *FilePermission) Set() PermissionSet {
	return PermissionSet{
		Read:   p.CanRead,
		Write:  p.CanWrite,
		Delete: p.CanDelete,
		Share:  p.CanShare,
		Manage: p.CanManage,
	}
}

// FileShare is a tokenized public access link to one file. Validity is
// derived, never stored.
type FileShare struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FileID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"file_id"`
	Token         string     `gorm:"size:64;uniqueIndex;not null" json:"token"`
	Password      string     `gorm:"size:255" json:"-"`
	MaxDownloads  *int       `json:"max_downloads,omitempty"`
	DownloadCount int        `gorm:"not null;default:0" json:"download_count"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedBy     uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	AllowUpload   bool       `gorm:"not null;default:false" json:"allow_upload"`
}

func (s *FileShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *FileShare) IsExpired() bool {
	return s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt)
}

func (s *FileShare) IsDownloadLimitReached() bool {
	return s.MaxDownloads != nil && s.DownloadCount >= *s.MaxDownloads
}

// IsValid is the derived validity predicate: active, not expired,
// under the download limit.
func (s *FileShare) IsValid() bool {
	return s.IsActive && !s.IsExpired() && !s.IsDownloadLimitReached()
}

func (s *FileShare) HasPassword() bool {
	return s.Password != ""
}

// FileVersion is an immutable snapshot of prior file content, created
// whenever content is replaced. Pruned oldest-first beyond the
// configured maximum.
type FileVersion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_file_versions_file_version" json:"file_id"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_file_versions_file_version" json:"version_number"`
	Size          int64     `gorm:"not null" json:"size"`
	Checksum      string    `gorm:"size:64;not null" json:"checksum"`
	StoragePath   string    `gorm:"not null" json:"-"`
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	Comment       string    `json:"comment,omitempty"`
}

func (v *FileVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// FileActivity is an append-only audit event. It carries no foreign key
// to files on purpose: audit rows must survive node deletion.
type FileActivity struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FileID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"file_id"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ActivityType string     `gorm:"size:50;not null;index" json:"activity_type"`
	Description  string     `gorm:"not null" json:"description"`
	IPAddress    string     `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent    string     `json:"user_agent,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (a *FileActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
