package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "create-admin"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	configFile = writeConfig(t, `
server:
  address: ":9090"
auth:
  jwt_secret: "player-secret"
  admin_jwt_secret: "staff-secret"
`)
	t.Cleanup(func() { configFile = "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "staff-secret", cfg.Auth.AdminJWTSecret)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	configFile = writeConfig(t, `
auth:
  jwt_secret: "same"
  admin_jwt_secret: "same"
`)
	t.Cleanup(func() { configFile = "" })

	_, err := loadConfig()
	assert.ErrorContains(t, err, "admin_jwt_secret must differ")
}

func TestCreateAdminCmd_RejectsUnknownRole(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"create-admin", "--email", "root@arena.gg", "--password", "long-enough", "--role", "owner"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, `unknown role "owner"`)
}

func TestCreateAdminCmd_RequiresFlags(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"create-admin", "--email", "root@arena.gg"})

	assert.Error(t, cmd.Execute())
}
