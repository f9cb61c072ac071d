package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envDBHost, "db.internal")
	t.Setenv(envDBUser, "reader")
	t.Setenv(envDBPassword, "s3cret")
	t.Setenv(envDBName, "analytics")
	t.Setenv(envMailSender, "exports@example.com")
	t.Setenv(envMailRecipients, "ops@example.com, data@example.com,")
	t.Setenv(envMailPassword, "smtp-pass")
	t.Setenv(envMailHost, "smtp.example.com")
}

func TestLoad_FromEnv(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, "reader", cfg.Database.User)
	assert.Equal(t, "analytics", cfg.Database.Name)
	assert.Equal(t, DefaultConnectTimeout, cfg.Database.ConnectTimeout)

	assert.Equal(t, []string{"ops@example.com", "data@example.com"}, cfg.Mail.Recipients)
	assert.Equal(t, "exports@example.com", cfg.Mail.Username, "username defaults to sender")
	assert.Equal(t, DefaultSMTPPort, cfg.Mail.Port)
	assert.Equal(t, DefaultMailTimeout, cfg.Mail.Timeout)

	assert.Equal(t, DefaultScratchDir, cfg.Scratch.Dir)
	assert.True(t, cfg.Scratch.RetainArtifacts)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv(envDBPort, "6543")
	t.Setenv(envDBConnectTimeout, "3s")
	t.Setenv(envMailPort, "2465")
	t.Setenv(envMailUsername, "relay-user")
	t.Setenv(envScratchRetain, "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 2465, cfg.Mail.Port)
	assert.Equal(t, "relay-user", cfg.Mail.Username)
	assert.False(t, cfg.Scratch.RetainArtifacts)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queryexport.yaml")
	content := `
database:
  host: file-host
  user: file-user
  name: file-db
mail:
  sender: file@example.com
  recipients:
    - a@example.com
    - b@example.com
  password: pw
  host: smtp.file.example.com
scratch:
  dir: /tmp/exports
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Environment takes precedence over the file.
	t.Setenv(envDBHost, "env-host")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, "file-user", cfg.Database.User)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.Recipients)
	assert.Equal(t, "/tmp/exports", cfg.Scratch.Dir)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Port: 0},
		Mail:     MailConfig{Port: 70000},
	}

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"database host is required",
		"database user is required",
		"database name is required",
		"database port 0 is out of range",
		"mail sender is required",
		"at least one mail recipient is required",
		"mail password is required",
		"mail SMTP host is required",
		"mail SMTP port 70000 is out of range",
		"database connect timeout 0s is below 1s",
		"mail timeout 0s is below 1s",
		"scratch directory is required",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_BareTimeoutsAreSeconds(t *testing.T) {
	setValidEnv(t)
	t.Setenv(envDBConnectTimeout, "10")
	t.Setenv(envMailTimeout, "45")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 45*time.Second, cfg.Mail.Timeout)
	assert.Contains(t, cfg.Database.ConnString(), "connect_timeout=10")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BareTimeoutsInConfigFile(t *testing.T) {
	setValidEnv(t)
	path := filepath.Join(t.TempDir(), "queryexport.yaml")
	content := `
database:
  connect_timeout: 7
mail:
  timeout: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Mail.Timeout)
}

func TestValidate_RejectsSubSecondTimeouts(t *testing.T) {
	setValidEnv(t)
	t.Setenv(envDBConnectTimeout, "500ms")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connect timeout 500ms is below 1s (RDS_CONNECT_TIMEOUT)")
}

func TestBareSeconds(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want time.Duration
		ok   bool
	}{
		{name: "int", in: 10, want: 10 * time.Second, ok: true},
		{name: "numeric string", in: " 3 ", want: 3 * time.Second, ok: true},
		{name: "fractional string", in: "1.5", want: 1500 * time.Millisecond, ok: true},
		{name: "float", in: 2.0, want: 2 * time.Second, ok: true},
		{name: "with unit", in: "10s"},
		{name: "duration", in: 5 * time.Second},
		{name: "nil", in: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bareSeconds(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatabaseConfig_ConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "full",
			cfg: DatabaseConfig{
				Host: "localhost", Port: 5432, User: "reader", Password: "pw",
				Name: "app", SSLMode: "require", ConnectTimeout: 5 * time.Second,
			},
			want: "postgres://reader:pw@localhost:5432/app?connect_timeout=5&sslmode=require",
		},
		{
			name: "password with reserved characters is escaped",
			cfg:  DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss/word", Name: "d"},
			want: "postgres://u:p%40ss%2Fword@db:5432/d",
		},
		{
			name: "sub-second timeout rounds up to one second",
			cfg:  DatabaseConfig{Host: "db", Port: 1, User: "u", Name: "d", ConnectTimeout: 200 * time.Millisecond},
			want: "postgres://u:@db:1/d?connect_timeout=1",
		},
		{
			name: "ipv6 host",
			cfg:  DatabaseConfig{Host: "::1", Port: 5432, User: "u", Name: "d"},
			want: "postgres://u:@[::1]:5432/d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ConnString())
		})
	}
}

func TestNormalizeList(t *testing.T) {
	assert.Nil(t, normalizeList(nil))
	assert.Nil(t, normalizeList([]string{" ", ","}))
	assert.Equal(t, []string{"a", "b", "c"}, normalizeList([]string{"a, b", " c "}))
}
