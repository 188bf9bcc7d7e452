package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTAKE_JWT_SECRET", "secret")
	t.Setenv("INTAKE_ADMIN_PASS", "s3cret-admin")
	t.Setenv("INTAKE_WHATSAPP_VERIFY_TOKEN", "verify-me")
	t.Setenv("INTAKE_TELEGRAM_ADMIN_CHAT_ID", "42")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, "root", cfg.AdminUser)
	assert.Equal(t, "s3cret-admin", cfg.AdminPass)
	assert.Equal(t, "verify-me", cfg.WhatsApp.VerifyToken)
	assert.Equal(t, int64(42), cfg.Telegram.AdminChatID)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "v18.0", cfg.WhatsApp.APIVersion)
	assert.Equal(t, 10*time.Second, cfg.Replies.SendTimeout)
	assert.False(t, cfg.WhatsApp.CloudAPIConfigured())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "intake.yaml")
	content := []byte(`
jwt_secret: file-secret
admin_pass: file-admin-pass
log:
  level: debug
whatsapp:
  access_token: tok
  phone_number_id: "123"
replies:
  burst: 5
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Replies.Burst)
	assert.True(t, cfg.WhatsApp.CloudAPIConfigured())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTAKE_JWT_SECRET", "")
	t.Setenv("INTAKE_ADMIN_PASS", "s3cret-admin")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_RejectsDefaultAdminPassword(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTAKE_JWT_SECRET", "secret")

	tests := []struct {
		name string
		pass string
		want string
	}{
		{"unset", "", "admin_pass is required"},
		{"root", "root", "well-known default"},
		{"same as user", "ROOT", "well-known default"},
		{"common", "changeme", "well-known default"},
		{"too short", "x7!kq", "at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INTAKE_ADMIN_PASS", tt.pass)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_AdminPassMatchingUser(t *testing.T) {
	cfg := Config{
		JWTSecret:   "secret",
		DatabaseURL: "postgres://localhost/intake",
		AdminUser:   "operations",
		AdminPass:   "Operations",
		Replies:     ReplyConfig{RatePerSecond: 1, Burst: 1},
	}
	assert.ErrorContains(t, cfg.Validate(), "well-known default")

	cfg.AdminPass = "long-enough-pass"
	assert.NoError(t, cfg.Validate())
}
