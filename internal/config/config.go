// Package config loads and validates the runtime configuration of the export
// service: database connection, mail relay and scratch storage.
//
// Values come from environment variables (see the env* constants), optionally
// layered over a config file passed with --config. The resulting Config is
// validated once at startup and then injected into the components that need it.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variable names.
const (
	envDBHost           = "RDS_HOST"
	envDBPort           = "RDS_PORT"
	envDBUser           = "RDS_USER"
	envDBPassword       = "RDS_PASSWORD"
	envDBName           = "RDS_DATABASE"
	envDBSSLMode        = "RDS_SSLMODE"
	envDBConnectTimeout = "RDS_CONNECT_TIMEOUT"

	envMailSender     = "MAIL_SENDER"
	envMailRecipients = "MAIL_RECIPIENTS"
	envMailUsername   = "MAIL_USERNAME"
	envMailPassword   = "MAIL_PASSWORD"
	envMailHost       = "MAIL_SMTP_HOST"
	envMailPort       = "MAIL_SMTP_PORT"
	envMailTimeout    = "MAIL_TIMEOUT"

	envScratchDir    = "SCRATCH_DIR"
	envScratchRetain = "SCRATCH_RETAIN_ARTIFACTS"
)

// Defaults.
const (
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultConnectTimeout = 10 * time.Second
	DefaultSMTPPort       = 465
	DefaultMailTimeout    = 30 * time.Second
	DefaultScratchDir     = "./temp"
)

// Config is the complete runtime configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Mail     MailConfig     `mapstructure:"mail"`
	Scratch  ScratchConfig  `mapstructure:"scratch"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	SSLMode        string        `mapstructure:"sslmode"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// MailConfig holds the SMTP relay and envelope settings.
type MailConfig struct {
	Sender     string        `mapstructure:"sender"`
	Recipients []string      `mapstructure:"recipients"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ScratchConfig controls where artifacts are written.
type ScratchConfig struct {
	// Dir is the root directory for per-run scratch directories.
	Dir string `mapstructure:"dir"`

	// RetainArtifacts keeps each run's artifact until shutdown instead of
	// removing it as soon as the run completes.
	RetainArtifacts bool `mapstructure:"retain_artifacts"`
}

// bindings maps config keys to their environment variables.
var bindings = map[string]string{
	"database.host":            envDBHost,
	"database.port":            envDBPort,
	"database.user":            envDBUser,
	"database.password":        envDBPassword,
	"database.name":            envDBName,
	"database.sslmode":         envDBSSLMode,
	"database.connect_timeout": envDBConnectTimeout,
	"mail.sender":              envMailSender,
	"mail.recipients":          envMailRecipients,
	"mail.username":            envMailUsername,
	"mail.password":            envMailPassword,
	"mail.host":                envMailHost,
	"mail.port":                envMailPort,
	"mail.timeout":             envMailTimeout,
	"scratch.dir":              envScratchDir,
	"scratch.retain_artifacts": envScratchRetain,
}

// Load builds a Config from the environment, layered over the optional
// config file at path. It does not validate; call Validate once at startup.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.port", DefaultDBPort)
	v.SetDefault("database.sslmode", DefaultDBSSLMode)
	v.SetDefault("database.connect_timeout", DefaultConnectTimeout)
	v.SetDefault("mail.port", DefaultSMTPPort)
	v.SetDefault("mail.timeout", DefaultMailTimeout)
	v.SetDefault("scratch.dir", DefaultScratchDir)
	v.SetDefault("scratch.retain_artifacts", true)

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for _, key := range durationKeys {
		if d, ok := bareSeconds(v.Get(key)); ok {
			v.Set(key, d)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Mail.Recipients = normalizeList(cfg.Mail.Recipients)
	if cfg.Mail.Username == "" {
		cfg.Mail.Username = cfg.Mail.Sender
	}

	return &cfg, nil
}

// durationKeys are the settings that accept a bare number of seconds.
var durationKeys = []string{"database.connect_timeout", "mail.timeout"}

// bareSeconds interprets a unit-less number as seconds. Values carrying a
// unit ("10s", "1m") are left to the duration decoder.
func bareSeconds(raw any) (time.Duration, bool) {
	switch val := raw.(type) {
	case int:
		return time.Duration(val) * time.Second, true
	case int64:
		return time.Duration(val) * time.Second, true
	case float64:
		return time.Duration(val * float64(time.Second)), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return time.Duration(n * float64(time.Second)), true
	}
	return 0, false
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database host is required (%s)", envDBHost))
	}
	if c.Database.User == "" {
		errs = append(errs, fmt.Errorf("database user is required (%s)", envDBUser))
	}
	if c.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database name is required (%s)", envDBName))
	}
	if !validPort(c.Database.Port) {
		errs = append(errs, fmt.Errorf("database port %d is out of range", c.Database.Port))
	}
	if c.Database.ConnectTimeout < time.Second {
		errs = append(errs, fmt.Errorf("database connect timeout %s is below 1s (%s)", c.Database.ConnectTimeout, envDBConnectTimeout))
	}

	if c.Mail.Sender == "" {
		errs = append(errs, fmt.Errorf("mail sender is required (%s)", envMailSender))
	}
	if len(c.Mail.Recipients) == 0 {
		errs = append(errs, fmt.Errorf("at least one mail recipient is required (%s)", envMailRecipients))
	}
	if c.Mail.Password == "" {
		errs = append(errs, fmt.Errorf("mail password is required (%s)", envMailPassword))
	}
	if c.Mail.Host == "" {
		errs = append(errs, fmt.Errorf("mail SMTP host is required (%s)", envMailHost))
	}
	if !validPort(c.Mail.Port) {
		errs = append(errs, fmt.Errorf("mail SMTP port %d is out of range", c.Mail.Port))
	}
	if c.Mail.Timeout < time.Second {
		errs = append(errs, fmt.Errorf("mail timeout %s is below 1s (%s)", c.Mail.Timeout, envMailTimeout))
	}

	if c.Scratch.Dir == "" {
		errs = append(errs, fmt.Errorf("scratch directory is required (%s)", envScratchDir))
	}

	return errors.Join(errs...)
}

// ConnString renders the database settings as a postgres:// URL.
func (d DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}

	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		secs := int(d.ConnectTimeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// normalizeList trims entries, drops empties and splits any comma-joined values.
func normalizeList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
