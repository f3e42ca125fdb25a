package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Audit    AuditConfig
	S3       S3Config
	Archive  ArchiveConfig
	Log      LogConfig
	CORS     CORSConfig
	Provider ProviderConfig
	RIPS     RIPSConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Environment   string        `mapstructure:"environment"`
	MaxUploadMB   int64         `mapstructure:"max_upload_mb"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AuditConfig toggles the submission audit log. When disabled the server
// runs without a database.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// ArchiveConfig controls copying exports to object storage.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProviderConfig holds the invoicing provider endpoints and credentials.
type ProviderConfig struct {
	Token              string `mapstructure:"token"`
	DefaultEnvironment string `mapstructure:"default_environment"`
	TestURL            string `mapstructure:"test_url"`
	StagingURL         string `mapstructure:"staging_url"`
	ProductionURL      string `mapstructure:"production_url"`
	TimeoutSecs        int    `mapstructure:"timeout_secs"`
}

// BaseURLs returns the provider base URL per environment name.
func (p *ProviderConfig) BaseURLs() map[string]string {
	return map[string]string{
		"pruebas":      p.TestURL,
		"habilitacion": p.StagingURL,
		"produccion":   p.ProductionURL,
	}
}

// RIPSConfig holds claims document processing settings.
type RIPSConfig struct {
	TipoUsuario string `mapstructure:"tipo_usuario"`
	ForceSign   int    `mapstructure:"force_sign"`
}

// Load reads configuration from environment variables with the RIPSNC_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RIPSNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.session_ttl", "12h")
	v.SetDefault("server.sweep_interval", "10m")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ripsnc")
	v.SetDefault("db.password", "ripsnc_secret")
	v.SetDefault("db.name", "ripsnc_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	v.SetDefault("audit.enabled", false)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "ripsnc-exports")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "exports")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Provider defaults
	v.SetDefault("provider.token", "")
	v.SetDefault("provider.default_environment", "pruebas")
	v.SetDefault("provider.test_url", "https://servicios-pruebas.afacturar.com")
	v.SetDefault("provider.staging_url", "https://servicios-habilitacion.afacturar.com")
	v.SetDefault("provider.production_url", "https://servicios.afacturar.com")
	v.SetDefault("provider.timeout_secs", 60)

	// Claims processing defaults
	v.SetDefault("rips.tipo_usuario", "04")
	v.SetDefault("rips.force_sign", -1)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "RIPSNC_SERVER_PORT",
		"server.read_timeout":          "RIPSNC_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "RIPSNC_SERVER_WRITE_TIMEOUT",
		"server.environment":           "RIPSNC_SERVER_ENVIRONMENT",
		"server.max_upload_mb":         "RIPSNC_SERVER_MAX_UPLOAD_MB",
		"server.session_ttl":           "RIPSNC_SERVER_SESSION_TTL",
		"server.sweep_interval":        "RIPSNC_SERVER_SWEEP_INTERVAL",
		"db.host":                      "RIPSNC_DB_HOST",
		"db.port":                      "RIPSNC_DB_PORT",
		"db.user":                      "RIPSNC_DB_USER",
		"db.password":                  "RIPSNC_DB_PASSWORD",
		"db.name":                      "RIPSNC_DB_NAME",
		"db.sslmode":                   "RIPSNC_DB_SSLMODE",
		"db.max_open":                  "RIPSNC_DB_MAX_OPEN",
		"db.max_idle":                  "RIPSNC_DB_MAX_IDLE",
		"audit.enabled":                "RIPSNC_AUDIT_ENABLED",
		"s3.region":                    "RIPSNC_S3_REGION",
		"s3.bucket":                    "RIPSNC_S3_BUCKET",
		"s3.endpoint":                  "RIPSNC_S3_ENDPOINT",
		"s3.access_key":                "RIPSNC_S3_ACCESS_KEY",
		"s3.secret_key":                "RIPSNC_S3_SECRET_KEY",
		"s3.presign_expiry":            "RIPSNC_S3_PRESIGN_EXPIRY",
		"archive.enabled":              "RIPSNC_ARCHIVE_ENABLED",
		"archive.prefix":               "RIPSNC_ARCHIVE_PREFIX",
		"log.level":                    "RIPSNC_LOG_LEVEL",
		"log.format":                   "RIPSNC_LOG_FORMAT",
		"cors.allowed_origins":         "RIPSNC_CORS_ALLOWED_ORIGINS",
		"provider.token":               "RIPSNC_PROVIDER_TOKEN",
		"provider.default_environment": "RIPSNC_PROVIDER_DEFAULT_ENVIRONMENT",
		"provider.test_url":            "RIPSNC_PROVIDER_TEST_URL",
		"provider.staging_url":         "RIPSNC_PROVIDER_STAGING_URL",
		"provider.production_url":      "RIPSNC_PROVIDER_PRODUCTION_URL",
		"provider.timeout_secs":        "RIPSNC_PROVIDER_TIMEOUT_SECS",
		"rips.tipo_usuario":            "RIPSNC_RIPS_TIPO_USUARIO",
		"rips.force_sign":              "RIPSNC_RIPS_FORCE_SIGN",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if RIPSNC_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("RIPSNC_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:          serverPort,
		ReadTimeout:   v.GetDuration("server.read_timeout"),
		WriteTimeout:  v.GetDuration("server.write_timeout"),
		Environment:   v.GetString("server.environment"),
		MaxUploadMB:   v.GetInt64("server.max_upload_mb"),
		SessionTTL:    v.GetDuration("server.session_ttl"),
		SweepInterval: v.GetDuration("server.sweep_interval"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Audit = AuditConfig{
		Enabled: v.GetBool("audit.enabled"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Archive = ArchiveConfig{
		Enabled: v.GetBool("archive.enabled"),
		Prefix:  strings.Trim(v.GetString("archive.prefix"), "/"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}
	cfg.Provider = ProviderConfig{
		Token:              v.GetString("provider.token"),
		DefaultEnvironment: v.GetString("provider.default_environment"),
		TestURL:            strings.TrimRight(v.GetString("provider.test_url"), "/"),
		StagingURL:         strings.TrimRight(v.GetString("provider.staging_url"), "/"),
		ProductionURL:      strings.TrimRight(v.GetString("provider.production_url"), "/"),
		TimeoutSecs:        v.GetInt("provider.timeout_secs"),
	}
	cfg.RIPS = RIPSConfig{
		TipoUsuario: v.GetString("rips.tipo_usuario"),
		ForceSign:   v.GetInt("rips.force_sign"),
	}

	if cfg.RIPS.ForceSign != 1 && cfg.RIPS.ForceSign != -1 {
		return nil, fmt.Errorf("rips.force_sign must be 1 or -1, got %d", cfg.RIPS.ForceSign)
	}

	return cfg, nil
}
