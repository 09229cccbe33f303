package services

import (
	"testing"
	"time"

	"omnidrive/models"
	"omnidrive/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShareIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	share, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role, &models.ShareRequest{}, nil)
	require.NoError(t, err)
	assert.Len(t, share.Token, 64)
	assert.True(t, share.IsActive)
	assert.True(t, share.IsValid())
}

func TestCreateShareRequiresShareCapability(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	// Read without share: visible but not shareable.
	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true})
	_, err := env.shares.CreateShare(file.ID, env.stranger.ID, env.stranger.Role, &models.ShareRequest{}, nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
}

func TestCreateShareMasksInvisibleFile(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	_, err := env.shares.CreateShare(file.ID, env.stranger.ID, env.stranger.Role, &models.ShareRequest{}, nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
	assert.True(t, utils.HasKind(err, utils.KindAuthorization))
}

func TestResolveShareUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.shares.ResolveShare("deadbeef", "")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestResolveShareGrantsAnonymousAccess(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("payload"), nil)

	share, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role, &models.ShareRequest{}, nil)
	require.NoError(t, err)

	resolved, resolvedFile, err := env.shares.ResolveShare(share.Token, "")
	require.NoError(t, err)
	assert.Equal(t, share.ID, resolved.ID)
	assert.Equal(t, file.ID, resolvedFile.ID)
	assert.NotNil(t, resolved.LastAccessed)
}

func TestResolveSharePassword(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	share, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role,
		&models.ShareRequest{Password: "hunter2"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", share.Password)

	_, _, err = env.shares.ResolveShare(share.Token, "")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))

	_, _, err = env.shares.ResolveShare(share.Token, "wrong")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))

	_, _, err = env.shares.ResolveShare(share.Token, "hunter2")
	require.NoError(t, err)
}

func TestResolveShareExpiry(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	share, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role, &models.ShareRequest{}, nil)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	require.NoError(t, env.db.Model(&models.FileShare{}).
		Where("id = ?", share.ID).Update("expires_at", past).Error)

	_, _, err = env.shares.ResolveShare(share.Token, "")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindExpired))
}

func TestCreateShareRejectsPastExpiry(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	past := time.Now().Add(-time.Minute)
	_, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role,
		&models.ShareRequest{ExpiresAt: &past}, nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestLastValidDownloadAlwaysSucceeds(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	one := 1
	share, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role,
		&models.ShareRequest{MaxDownloads: &one}, nil)
	require.NoError(t, err)

	// Validity is checked at resolve time; the resolved download always
	// completes, even when the counter reaches the limit.
	resolved, resolvedFile, err := env.shares.ResolveShare(share.Token, "")
	require.NoError(t, err)
	require.NoError(t, env.shares.RecordDownload(resolved, resolvedFile, nil))

	// The next resolve sees an exhausted link.
	_, _, err = env.shares.ResolveShare(share.Token, "")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindExpired))
}

func TestDeactivateShare(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	share, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role, &models.ShareRequest{}, nil)
	require.NoError(t, err)

	require.NoError(t, env.shares.DeactivateShare(share.ID, env.owner.ID, env.owner.Role, nil))

	_, _, err = env.shares.ResolveShare(share.Token, "")
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindExpired))

	var count int64
	env.db.Model(&models.FileActivity{}).
		Where("file_id = ? AND activity_type = ?", file.ID, ActivityShareRevoked).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeactivateShareRequiresCapability(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	share, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role, &models.ShareRequest{}, nil)
	require.NoError(t, err)

	err = env.shares.DeactivateShare(share.ID, env.stranger.ID, env.stranger.Role, nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
}

func TestShareUploadIntoFolder(t *testing.T) {
	env := newTestEnv(t)
	folder := env.createFolder(t, env.owner, "dropbox", nil)

	share, err := env.shares.CreateShare(folder.ID, env.owner.ID, env.owner.Role,
		&models.ShareRequest{AllowUpload: true}, nil)
	require.NoError(t, err)

	file, err := env.shares.ShareUpload(share.Token, "", "submission.txt", newReader("homework"), nil)
	require.NoError(t, err)

	// The upload lands in the folder, owned by the link creator.
	assert.Equal(t, env.owner.ID, file.OwnerID)
	require.NotNil(t, file.ParentID)
	assert.Equal(t, folder.ID, *file.ParentID)
	assert.Equal(t, "/dropbox/submission.txt", file.Path)
}

func TestShareUploadRejectsPathSeparatorInFilename(t *testing.T) {
	env := newTestEnv(t)
	folder := env.createFolder(t, env.owner, "dropbox", nil)

	share, err := env.shares.CreateShare(folder.ID, env.owner.ID, env.owner.Role,
		&models.ShareRequest{AllowUpload: true}, nil)
	require.NoError(t, err)

	// The anonymous surface passes client-supplied names through; they
	// get the same charset gate as every other upload.
	_, err = env.shares.ShareUpload(share.Token, "", "../escape.txt", newReader("x"), nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestShareUploadRejectedWithoutFlag(t *testing.T) {
	env := newTestEnv(t)
	folder := env.createFolder(t, env.owner, "dropbox", nil)

	share, err := env.shares.CreateShare(folder.ID, env.owner.ID, env.owner.Role, &models.ShareRequest{}, nil)
	require.NoError(t, err)

	_, err = env.shares.ShareUpload(share.Token, "", "submission.txt", newReader("x"), nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
}

func TestShareUploadOnFileTargetRejectedAtCreate(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	_, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role,
		&models.ShareRequest{AllowUpload: true}, nil)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestListSharesRequiresShareCapability(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "report.pdf", []byte("x"), nil)

	_, err := env.shares.CreateShare(file.ID, env.owner.ID, env.owner.Role, &models.ShareRequest{}, nil)
	require.NoError(t, err)

	shares, err := env.shares.ListShares(file.ID, env.owner.ID, env.owner.Role)
	require.NoError(t, err)
	assert.Len(t, shares, 1)

	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true})
	_, err = env.shares.ListShares(file.ID, env.stranger.ID, env.stranger.Role)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
}
