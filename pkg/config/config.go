package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendGCS    = "gcs"
	BackendS3     = "s3"
	BackendMinio  = "minio"
	BackendMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Env             string
	Backend         string
	BucketName      string
	Region          string
	Endpoint        string
	CredentialsFile string
	AccessKey       string
	SecretKey       string
	UseSSL          bool
	Port            string

	AdminPasscode string
	SessionSecret string
	SessionTTL    time.Duration
	URLTTL        time.Duration
	CacheTTL      time.Duration

	ViewsDir  string
	PublicDir string
}

// ErrBucketNameNotSet is returned when the BUCKET_NAME environment variable is not set
var ErrBucketNameNotSet = errors.New("BUCKET_NAME environment variable not set")

// ErrAdminPasscodeNotSet is returned when the ADMIN_PASSCODE environment variable is not set
var ErrAdminPasscodeNotSet = errors.New("ADMIN_PASSCODE environment variable not set")

// ErrSessionSecretNotSet is returned when the SESSION_SECRET environment variable is not set
var ErrSessionSecretNotSet = errors.New("SESSION_SECRET environment variable not set")

// ErrEndpointNotSet is returned when the minio backend has no STORAGE_ENDPOINT
var ErrEndpointNotSet = errors.New("STORAGE_ENDPOINT environment variable not set")

// ErrUnknownBackend is returned when STORAGE_BACKEND names no known backend
var ErrUnknownBackend = errors.New("unknown STORAGE_BACKEND")

// Load loads configuration from a .env file if present, the environment, and
// the optional config file at path
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("STORAGE_BACKEND", BackendGCS)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("PORT", "8080")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("URL_TTL", "1h")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("VIEWS_DIR", "./views")
	v.SetDefault("PUBLIC_DIR", "./public")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Env:             v.GetString("APP_ENV"),
		Backend:         strings.ToLower(v.GetString("STORAGE_BACKEND")),
		BucketName:      v.GetString("BUCKET_NAME"),
		Region:          v.GetString("AWS_REGION"),
		Endpoint:        v.GetString("STORAGE_ENDPOINT"),
		CredentialsFile: v.GetString("GOOGLE_CREDENTIALS_FILE"),
		AccessKey:       v.GetString("STORAGE_ACCESS_KEY"),
		SecretKey:       v.GetString("STORAGE_SECRET_KEY"),
		UseSSL:          v.GetBool("STORAGE_USE_SSL"),
		Port:            v.GetString("PORT"),
		AdminPasscode:   v.GetString("ADMIN_PASSCODE"),
		SessionSecret:   v.GetString("SESSION_SECRET"),
		SessionTTL:      v.GetDuration("SESSION_TTL"),
		URLTTL:          v.GetDuration("URL_TTL"),
		CacheTTL:        v.GetDuration("CACHE_TTL"),
		ViewsDir:        v.GetString("VIEWS_DIR"),
		PublicDir:       v.GetString("PUBLIC_DIR"),
	}

	switch cfg.Backend {
	case BackendGCS, BackendS3:
		if cfg.BucketName == "" {
			return nil, ErrBucketNameNotSet
		}
	case BackendMinio:
		if cfg.BucketName == "" {
			return nil, ErrBucketNameNotSet
		}
		if cfg.Endpoint == "" {
			return nil, ErrEndpointNotSet
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	return cfg, nil
}

// ValidateServer checks the settings only the web server needs
func (c *Config) ValidateServer() error {
	if c.AdminPasscode == "" {
		return ErrAdminPasscodeNotSet
	}
	if c.SessionSecret == "" {
		return ErrSessionSecretNotSet
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddress returns the server address with port
func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// PrintServerStartMessage prints a message when the server starts
func (c *Config) PrintServerStartMessage() {
	fmt.Printf("Starting server at port %s\n", c.Port)
	fmt.Printf("Portfolio URL: http://localhost:%s/\n", c.Port)
	fmt.Printf("Admin URL: http://localhost:%s/admin\n", c.Port)
}
