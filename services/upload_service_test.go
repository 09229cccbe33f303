package services

import (
	"strings"
	"testing"

	"omnidrive/models"
	"omnidrive/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPersistsContentAndMetadata(t *testing.T) {
	env := newTestEnv(t)

	file := env.uploadFile(t, env.owner, "report.pdf", []byte("payload"), nil)

	assert.Equal(t, models.FileTypeFile, file.Type)
	assert.Equal(t, "pdf", file.Extension)
	assert.Equal(t, int64(7), file.Size)
	assert.Equal(t, "/report.pdf", file.Path)
	assert.Equal(t, 1, file.Version)
	assert.Equal(t, utils.ChecksumSHA256([]byte("payload")), file.Checksum)

	content, err := env.store.Read(file.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), content)

	var count int64
	env.db.Model(&models.FileActivity{}).
		Where("file_id = ? AND activity_type = ?", file.ID, ActivityFileUploaded).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUploadBlockedExtensionFailsEvenForAdmin(t *testing.T) {
	env := newTestEnv(t)

	// The wildcard allow-list never overrides the blocked set.
	_, err := env.uploads.Upload(&UploadInput{
		Reader:   newReader("MZ"),
		Filename: "installer.exe",
		OwnerID:  env.admin.ID,
		Role:     env.admin.Role,
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestUploadRejectsPathSeparatorsInFilename(t *testing.T) {
	env := newTestEnv(t)

	docs := env.createFolder(t, env.owner, "docs", nil)
	env.uploadFile(t, env.owner, "a.txt", []byte("x"), &docs.ID)

	// A separator would sidestep the sibling collision check and mint a
	// path that belongs to no parent.
	for _, name := range []string{"docs/a.txt", "ghost/esc.txt", `dir\esc.txt`} {
		_, err := env.uploads.Upload(&UploadInput{
			Reader:   newReader("x"),
			Filename: name,
			OwnerID:  env.owner.ID,
			Role:     env.owner.Role,
		})
		require.Error(t, err, name)
		assert.True(t, utils.IsKind(err, utils.KindValidation), name)
	}

	// No phantom root-level nodes were created.
	var count int64
	env.db.Model(&models.File{}).
		Where("owner_id = ? AND parent_id IS NULL AND type = ?", env.owner.ID, models.FileTypeFile).
		Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestUploadDisallowedExtensionForRole(t *testing.T) {
	env := newTestEnv(t)
	guest := env.createUser(t, "visitor", models.RoleGuest)

	_, err := env.uploads.Upload(&UploadInput{
		Reader:   newReader("data"),
		Filename: "archive.zip",
		OwnerID:  guest.ID,
		Role:     guest.Role,
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestUploadOversizeReportsLimit(t *testing.T) {
	env := newTestEnv(t)
	guest := env.createUser(t, "visitor", models.RoleGuest)

	oversized := strings.Repeat("x", int(env.cfg.MaxFileSizeForRole(guest.Role))+1)
	_, err := env.uploads.Upload(&UploadInput{
		Reader:   newReader(oversized),
		Filename: "big.txt",
		OwnerID:  guest.ID,
		Role:     guest.Role,
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindTooLarge))
	assert.Contains(t, err.Error(), utils.FormatFileSize(env.cfg.MaxFileSizeForRole(guest.Role)))
}

func TestUploadIntoForeignFolderRequiresWrite(t *testing.T) {
	env := newTestEnv(t)
	folder := env.createFolder(t, env.owner, "docs", nil)

	_, err := env.uploads.Upload(&UploadInput{
		Reader:   newReader("data"),
		Filename: "note.txt",
		OwnerID:  env.stranger.ID,
		Role:     env.stranger.Role,
		ParentID: &folder.ID,
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
}

func TestUploadBatchIsolation(t *testing.T) {
	env := newTestEnv(t)

	inputs := []*UploadInput{
		{Reader: newReader("ok"), Filename: "good.txt", OwnerID: env.owner.ID, Role: env.owner.Role},
		{Reader: newReader("bad"), Filename: "virus.exe", OwnerID: env.owner.ID, Role: env.owner.Role},
		{Reader: newReader("ok2"), Filename: "also-good.txt", OwnerID: env.owner.ID, Role: env.owner.Role},
	}

	result, err := env.uploads.UploadBatch(inputs)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.True(t, result.Results[2].Success)

	var count int64
	env.db.Model(&models.File{}).Where("owner_id = ?", env.owner.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestUploadBatchTooManyFiles(t *testing.T) {
	env := newTestEnv(t)

	var inputs []*UploadInput
	for i := 0; i <= env.cfg.MaxFilesPerUpload; i++ {
		inputs = append(inputs, &UploadInput{
			Reader: newReader("x"), Filename: "f.txt",
			OwnerID: env.owner.ID, Role: env.owner.Role,
		})
	}

	_, err := env.uploads.UploadBatch(inputs)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestReplaceContentSnapshotsPriorVersion(t *testing.T) {
	env := newTestEnv(t)

	docs := env.createFolder(t, env.owner, "docs", nil)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("first draft"), &docs.ID)
	originalChecksum := file.Checksum
	originalKey := file.StoragePath

	updated, err := env.uploads.ReplaceContent(file.ID, env.owner.ID, env.owner.Role,
		newReader("final version"), "second pass", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "/docs/report.pdf", updated.Path)
	assert.Equal(t, utils.ChecksumSHA256([]byte("final version")), updated.Checksum)
	assert.NotEqual(t, originalKey, updated.StoragePath)

	var versions []models.FileVersion
	require.NoError(t, env.db.Where("file_id = ?", file.ID).Find(&versions).Error)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, originalChecksum, versions[0].Checksum)
	assert.Equal(t, int64(len("first draft")), versions[0].Size)
	assert.Equal(t, originalKey, versions[0].StoragePath)
	assert.Equal(t, "second pass", versions[0].Comment)

	// Old content is still retrievable through its snapshot.
	old, err := env.store.Read(versions[0].StoragePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("first draft"), old)
}

func TestReplaceContentPrunesOldVersions(t *testing.T) {
	env := newTestEnv(t)

	file := env.uploadFile(t, env.owner, "notes.txt", []byte("v1"), nil)
	firstKey := file.StoragePath

	// MaxVersionsPerFile is 3 in the test config.
	for i := 2; i <= 6; i++ {
		_, err := env.uploads.ReplaceContent(file.ID, env.owner.ID, env.owner.Role,
			newReader("v"+string(rune('0'+i))), "", nil)
		require.NoError(t, err)
	}

	var versions []models.FileVersion
	require.NoError(t, env.db.Where("file_id = ?", file.ID).
		Order("version_number ASC").Find(&versions).Error)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].VersionNumber)
	assert.Equal(t, 5, versions[2].VersionNumber)

	// The first version's bytes are gone from storage.
	exists, err := env.store.Exists(firstKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReplaceContentRequiresWrite(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("v1"), nil)

	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true})

	_, err := env.uploads.ReplaceContent(file.ID, env.stranger.ID, env.stranger.Role,
		newReader("v2"), "", nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
}

func TestReplaceContentOnFolderRejected(t *testing.T) {
	env := newTestEnv(t)
	folder := env.createFolder(t, env.owner, "docs", nil)

	_, err := env.uploads.ReplaceContent(folder.ID, env.owner.ID, env.owner.Role,
		newReader("x"), "", nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestVersionsListedNewestFirst(t *testing.T) {
	env := newTestEnv(t)

	file := env.uploadFile(t, env.owner, "notes.txt", []byte("v1"), nil)
	_, err := env.uploads.ReplaceContent(file.ID, env.owner.ID, env.owner.Role, newReader("v2"), "", nil)
	require.NoError(t, err)
	_, err = env.uploads.ReplaceContent(file.ID, env.owner.ID, env.owner.Role, newReader("v3"), "", nil)
	require.NoError(t, err)

	versions, err := env.uploads.Versions(file.ID, env.owner.ID, env.owner.Role)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.Equal(t, 1, versions[1].VersionNumber)
}

func TestUploadGeneratesThumbnailForImages(t *testing.T) {
	env := newTestEnv(t)

	file := env.uploadFile(t, env.owner, "photo.png", testPNG(t), nil)

	exists := fileExists(env.thumbs.Path(file.ID))
	assert.True(t, exists)
}

func TestThumbnailFailureNeverFailsUpload(t *testing.T) {
	env := newTestEnv(t)

	// Valid extension, garbage bytes: thumbnailing fails, the upload
	// does not.
	file := env.uploadFile(t, env.owner, "broken.png", []byte("not an image"), nil)
	assert.False(t, fileExists(env.thumbs.Path(file.ID)))
}
