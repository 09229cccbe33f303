package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"omnidrive/config"
	"omnidrive/database"
	"omnidrive/models"
	"omnidrive/storage"
	"omnidrive/utils"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv wires the full service graph against an in-memory database
// and a temp-dir storage provider.
type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	store    storage.Provider
	perms    *PermissionService
	paths    *PathService
	activity *ActivityService
	thumbs   *ThumbnailService
	uploads  *UploadService
	files    *FileService
	shares   *ShareService

	admin    *models.User
	owner    *models.User
	stranger *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	uploadDir := t.TempDir()
	cfg := &config.Config{
		UploadDir:    uploadDir,
		ThumbnailDir: t.TempDir(),
		AppURL:       "http://localhost:8080",
		BlockedExtensions: []string{
			"exe", "bat", "cmd", "scr", "pif", "com", "msi", "vbs", "ps1",
		},
		RolePolicies: map[string]config.RolePolicy{
			"admin": {AllowedExtensions: []string{"*"}, MaxFileSize: 10 << 20, StorageQuota: 100 << 20},
			"user":  {AllowedExtensions: []string{"jpg", "jpeg", "png", "gif", "pdf", "txt", "doc", "zip"}, MaxFileSize: 1 << 20, StorageQuota: 10 << 20},
			"guest": {AllowedExtensions: []string{"jpg", "jpeg", "png", "gif", "pdf", "txt"}, MaxFileSize: 100 << 10, StorageQuota: 1 << 20},
		},
		MaxFilesPerUpload:  5,
		MaxVersionsPerFile: 3,
	}

	store, err := storage.NewLocalProvider(uploadDir)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	env := &testEnv{
		db:       db,
		cfg:      cfg,
		store:    store,
		perms:    NewPermissionService(db),
		paths:    NewPathService(),
		activity: NewActivityService(db),
		thumbs:   NewThumbnailService(cfg, logger),
	}
	env.uploads = NewUploadService(db, cfg, env.perms, env.paths, env.activity, store, env.thumbs)
	env.uploads.async = false
	env.files = NewFileService(db, cfg, env.perms, env.paths, env.activity, store, env.thumbs)
	env.shares = NewShareService(db, env.perms, env.activity, env.uploads)

	env.admin = env.createUser(t, "admin", models.RoleAdmin)
	env.owner = env.createUser(t, "owner", models.RoleUser)
	env.stranger = env.createUser(t, "stranger", models.RoleUser)

	return env
}

func newReader(content string) *bytes.Reader {
	return bytes.NewReader([]byte(content))
}

// testPNG renders a small valid image for thumbnail tests.
func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (env *testEnv) createUser(t *testing.T, username, role string) *models.User {
	t.Helper()

	hashed, err := utils.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: hashed,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, env.db.Create(user).Error)
	return user
}

func (env *testEnv) createFolder(t *testing.T, owner *models.User, name string, parentID *uuid.UUID) *models.File {
	t.Helper()

	var parent *string
	if parentID != nil {
		s := parentID.String()
		parent = &s
	}
	folder, err := env.files.CreateFolder(owner.ID, owner.Role, &models.FolderCreateRequest{
		Name:     name,
		ParentID: parent,
	}, nil)
	require.NoError(t, err)
	return folder
}

func (env *testEnv) uploadFile(t *testing.T, owner *models.User, name string, content []byte, parentID *uuid.UUID) *models.File {
	t.Helper()

	file, err := env.uploads.Upload(&UploadInput{
		Reader:   bytes.NewReader(content),
		Filename: name,
		OwnerID:  owner.ID,
		Role:     owner.Role,
		ParentID: parentID,
	})
	require.NoError(t, err)
	return file
}

func (env *testEnv) grant(t *testing.T, file *models.File, granter, target *models.User, set models.PermissionSet) *models.FilePermission {
	t.Helper()

	grant, err := env.perms.Grant(file, granter.ID, granter.Role, &models.PermissionGrantRequest{
		UserID:    target.ID.String(),
		CanRead:   set.Read,
		CanWrite:  set.Write,
		CanDelete: set.Delete,
		CanShare:  set.Share,
		CanManage: set.Manage,
	})
	require.NoError(t, err)
	return grant
}
