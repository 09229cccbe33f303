package services

import (
	"testing"
	"time"

	"omnidrive/models"
	"omnidrive/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePermissionsOwner(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	set := env.perms.EffectivePermissions(file, env.owner.ID, env.owner.Role)
	assert.Equal(t, models.AllPermissions(), set)
}

func TestEffectivePermissionsOwnerIgnoresGrantRow(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	// A conflicting grant row for the owner must never narrow the
	// owner's capabilities.
	require.NoError(t, env.db.Create(&models.FilePermission{
		FileID:    file.ID,
		UserID:    env.owner.ID,
		CanRead:   false,
		GrantedBy: env.admin.ID,
	}).Error)

	set := env.perms.EffectivePermissions(file, env.owner.ID, env.owner.Role)
	assert.Equal(t, models.AllPermissions(), set)
}

func TestEffectivePermissionsStranger(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	set := env.perms.EffectivePermissions(file, env.stranger.ID, env.stranger.Role)
	assert.Equal(t, models.PermissionSet{}, set)
}

func TestEffectivePermissionsAdmin(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	set := env.perms.EffectivePermissions(file, env.admin.ID, env.admin.Role)
	assert.Equal(t, models.AllPermissions(), set)
}

func TestEffectivePermissionsExplicitGrant(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true, Write: true})

	set := env.perms.EffectivePermissions(file, env.stranger.ID, env.stranger.Role)
	assert.True(t, set.Read)
	assert.True(t, set.Write)
	assert.False(t, set.Delete)
	assert.False(t, set.Share)
	assert.False(t, set.Manage)
}

func TestEffectivePermissionsExpiredGrantCountsAsAbsent(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, env.db.Create(&models.FilePermission{
		FileID:    file.ID,
		UserID:    env.stranger.ID,
		CanRead:   true,
		CanWrite:  true,
		GrantedBy: env.owner.ID,
		ExpiresAt: &past,
	}).Error)

	// Expired grant means no capabilities at all, not the stored values.
	set := env.perms.EffectivePermissions(file, env.stranger.ID, env.stranger.Role)
	assert.Equal(t, models.PermissionSet{}, set)
}

func TestEffectivePermissionsPublicIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	require.NoError(t, env.db.Model(file).Update("visibility", models.VisibilityPublic).Error)
	file.Visibility = models.VisibilityPublic

	set := env.perms.EffectivePermissions(file, env.stranger.ID, env.stranger.Role)
	assert.Equal(t, models.ReadOnlyPermissions(), set)
}

func TestEffectivePermissionsSharedVisibilityBehavesPrivate(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	require.NoError(t, env.db.Model(file).Update("visibility", models.VisibilityShared).Error)
	file.Visibility = models.VisibilityShared

	set := env.perms.EffectivePermissions(file, env.stranger.ID, env.stranger.Role)
	assert.Equal(t, models.PermissionSet{}, set)
}

func TestGrantUpsertReplacesExistingRow(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true})
	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true, Write: true})

	var count int64
	env.db.Model(&models.FilePermission{}).
		Where("file_id = ? AND user_id = ?", file.ID, env.stranger.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)

	set := env.perms.EffectivePermissions(file, env.stranger.ID, env.stranger.Role)
	assert.True(t, set.Write)
}

func TestGrantRequiresManage(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)
	third := env.createUser(t, "third", models.RoleUser)

	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true, Write: true})

	_, err := env.perms.Grant(file, env.stranger.ID, env.stranger.Role, &models.PermissionGrantRequest{
		UserID:  third.ID.String(),
		CanRead: true,
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindAuthorization))
}

func TestGrantToOwnerRejected(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	_, err := env.perms.Grant(file, env.owner.ID, env.owner.Role, &models.PermissionGrantRequest{
		UserID:  env.owner.ID.String(),
		CanRead: false,
	})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestRevokeMissingGrantIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	err := env.perms.Revoke(file, env.owner.ID, env.owner.Role, env.stranger.ID)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestRevokeRemovesCapabilities(t *testing.T) {
	env := newTestEnv(t)
	file := env.uploadFile(t, env.owner, "notes.txt", []byte("hello"), nil)

	env.grant(t, file, env.owner, env.stranger, models.PermissionSet{Read: true})
	require.NoError(t, env.perms.Revoke(file, env.owner.ID, env.owner.Role, env.stranger.ID))

	set := env.perms.EffectivePermissions(file, env.stranger.ID, env.stranger.Role)
	assert.Equal(t, models.PermissionSet{}, set)
}

func TestReadableScope(t *testing.T) {
	env := newTestEnv(t)

	owned := env.uploadFile(t, env.owner, "mine.txt", []byte("a"), nil)
	foreign := env.uploadFile(t, env.stranger, "theirs.txt", []byte("b"), nil)
	public := env.uploadFile(t, env.stranger, "public.txt", []byte("c"), nil)
	require.NoError(t, env.db.Model(public).Update("visibility", models.VisibilityPublic).Error)
	granted := env.uploadFile(t, env.stranger, "granted.txt", []byte("d"), nil)
	env.grant(t, granted, env.stranger, env.owner, models.PermissionSet{Read: true})

	var visible []models.File
	require.NoError(t, env.perms.ReadableScope(env.db.Model(&models.File{}), env.owner.ID, env.owner.Role).
		Find(&visible).Error)

	ids := map[string]bool{}
	for _, f := range visible {
		ids[f.ID.String()] = true
	}
	assert.True(t, ids[owned.ID.String()])
	assert.True(t, ids[public.ID.String()])
	assert.True(t, ids[granted.ID.String()])
	assert.False(t, ids[foreign.ID.String()])

	// Admin sees everything.
	var all []models.File
	require.NoError(t, env.perms.ReadableScope(env.db.Model(&models.File{}), env.admin.ID, env.admin.Role).
		Find(&all).Error)
	assert.Len(t, all, 4)
}
