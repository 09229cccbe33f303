package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() *Config {
	return &Config{
		BlockedExtensions: []string{"exe", "bat", "ps1"},
		RolePolicies: map[string]RolePolicy{
			"admin": {AllowedExtensions: []string{"*"}, MaxFileSize: 1000},
			"user":  {AllowedExtensions: []string{"pdf", "txt", "jpg"}, MaxFileSize: 100},
			"guest": {AllowedExtensions: []string{"jpg"}, MaxFileSize: 10},
		},
	}
}

func TestBlockedExtensionsOverrideWildcard(t *testing.T) {
	cfg := testConfig()

	// Even the admin wildcard never admits a blocked extension.
	assert.False(t, cfg.IsExtensionAllowed("exe", "admin"))
	assert.False(t, cfg.IsExtensionAllowed("EXE", "admin"))
	assert.True(t, cfg.IsExtensionAllowed("anything", "admin"))
}

func TestRoleAllowLists(t *testing.T) {
	cfg := testConfig()

	assert.True(t, cfg.IsExtensionAllowed("pdf", "user"))
	assert.False(t, cfg.IsExtensionAllowed("pdf", "guest"))
	assert.True(t, cfg.IsExtensionAllowed("jpg", "guest"))
	assert.False(t, cfg.IsExtensionAllowed("zip", "user"))

	// Unknown roles get the empty policy.
	assert.False(t, cfg.IsExtensionAllowed("jpg", "nobody"))
	assert.Equal(t, int64(0), cfg.MaxFileSizeForRole("nobody"))
}

func TestIsExtensionAllowedNormalizesInput(t *testing.T) {
	cfg := testConfig()

	assert.True(t, cfg.IsExtensionAllowed(".PDF", "user"))
	assert.False(t, cfg.IsExtensionAllowed(".BAT", "admin"))
}
