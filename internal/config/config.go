package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Breeze   BreezeConfig   `mapstructure:"breeze"`
	Publish  PublishConfig  `mapstructure:"publish"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" validate:"required,numeric"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
	Host string `mapstructure:"host"`
	// TrustedProxies may set the client IP through X-Forwarded-For; empty trusts none
	TrustedProxies []string `mapstructure:"trusted_proxies" validate:"dive,ip|cidr"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host" validate:"required_if=Enabled true"`
	Port            string        `mapstructure:"port" validate:"required_if=Enabled true"`
	Database        string        `mapstructure:"database" validate:"required_if=Enabled true"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSL             string        `mapstructure:"ssl"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type SecurityConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret" validate:"required_if=EnableAuth true"`
	JWTExpiration      time.Duration `mapstructure:"jwt_expiration"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" validate:"min=0"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst" validate:"min=0"`
	EnableAuth         bool          `mapstructure:"enable_auth"`
	EnableRateLimit    bool          `mapstructure:"enable_rate_limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// BreezeConfig controls how metadata documents are built and which services are exposed
type BreezeConfig struct {
	Namespace                   string          `mapstructure:"namespace"`
	Pluralizer                  string          `mapstructure:"pluralizer" validate:"oneof=simple inflection"`
	LocalQueryComparisonOptions string          `mapstructure:"local_query_comparison_options" validate:"required"`
	CacheTTL                    time.Duration   `mapstructure:"cache_ttl"`
	Services                    []ServiceConfig `mapstructure:"services" validate:"min=1,dive"`
}

// ServiceConfig binds a Breeze service name to a compiled-in model set
type ServiceConfig struct {
	Name   string `mapstructure:"name" validate:"required"`
	Models string `mapstructure:"models" validate:"required"`
}

// PublishConfig lists the targets metadata documents are copied to
type PublishConfig struct {
	OnChange bool               `mapstructure:"on_change"`
	Prefix   string             `mapstructure:"prefix"`
	File     FilePublishConfig  `mapstructure:"file"`
	S3       S3PublishConfig    `mapstructure:"s3"`
	MinIO    MinIOPublishConfig `mapstructure:"minio"`
	Azure    AzurePublishConfig `mapstructure:"azure"`
	HDFS     HDFSPublishConfig  `mapstructure:"hdfs"`
}

type FilePublishConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir" validate:"required_if=Enabled true"`
}

type S3PublishConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Region         string `mapstructure:"region" validate:"required_if=Enabled true"`
	Bucket         string `mapstructure:"bucket" validate:"required_if=Enabled true"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	SessionToken   string `mapstructure:"session_token"`
	RoleARN        string `mapstructure:"role_arn"`
	ExternalID     string `mapstructure:"external_id"`
	EndpointURL    string `mapstructure:"endpoint_url"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	MaxRetries     int    `mapstructure:"max_retries" validate:"min=0"`
}

type MinIOPublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	AccessKey string `mapstructure:"access_key" validate:"required_if=Enabled true"`
	SecretKey string `mapstructure:"secret_key" validate:"required_if=Enabled true"`
	Bucket    string `mapstructure:"bucket" validate:"required_if=Enabled true"`
	Region    string `mapstructure:"region"`
	Secure    bool   `mapstructure:"secure"`
}

type AzurePublishConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	AccountName string `mapstructure:"account_name" validate:"required_if=Enabled true"`
	AccountKey  string `mapstructure:"account_key"`
	SASToken    string `mapstructure:"sas_token"`
	Container   string `mapstructure:"container" validate:"required_if=Enabled true"`
	Endpoint    string `mapstructure:"endpoint" validate:"omitempty,url"`
}

type HDFSPublishConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	NameNodes []string `mapstructure:"namenodes" validate:"required_if=Enabled true,dive,hostname_port"`
	User      string   `mapstructure:"user" validate:"required_if=Enabled true"`
	Dir       string   `mapstructure:"dir" validate:"required_if=Enabled true"`
}

// Load reads config.yaml from ./configs or the working directory
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the given config file, or searches the default locations when path is empty.
// Environment variables prefixed with BREEZE_ override file values, e.g. BREEZE_SERVER_PORT.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvPrefix("BREEZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// MinJWTSecretLength is the shortest HMAC secret accepted when auth is enabled
const MinJWTSecretLength = 32

// ErrWeakJWTSecret is returned when auth is enabled with a short signing secret
var ErrWeakJWTSecret = errors.New("security.jwt_secret is too short")

// Validate checks the configuration against its validation tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Security.EnableAuth && len(c.Security.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("invalid configuration: %w (need at least %d bytes)", ErrWeakJWTSecret, MinJWTSecretLength)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.trusted_proxies", []string{})

	// Database defaults
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.database", "breeze_db")
	v.SetDefault("database.username", "breeze_user")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl", "false")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	// Security defaults
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_expiration", "24h")
	v.SetDefault("security.rate_limit_per_minute", 60)
	v.SetDefault("security.rate_limit_burst", 10)
	v.SetDefault("security.enable_auth", false)
	v.SetDefault("security.enable_rate_limit", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Breeze defaults
	v.SetDefault("breeze.namespace", "")
	v.SetDefault("breeze.pluralizer", "simple")
	v.SetDefault("breeze.local_query_comparison_options", "caseInsensitiveSQL")
	v.SetDefault("breeze.cache_ttl", "10m")
	v.SetDefault("breeze.services", []map[string]interface{}{
		{"name": "NorthBreeze", "models": "northbreeze"},
	})

	// Publish defaults
	v.SetDefault("publish.on_change", false)
	v.SetDefault("publish.prefix", "breeze")
	v.SetDefault("publish.file.enabled", false)
	v.SetDefault("publish.file.dir", "./metadata")
	v.SetDefault("publish.s3.enabled", false)
	v.SetDefault("publish.s3.region", "")
	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.access_key", "")
	v.SetDefault("publish.s3.secret_key", "")
	v.SetDefault("publish.s3.session_token", "")
	v.SetDefault("publish.s3.role_arn", "")
	v.SetDefault("publish.s3.external_id", "")
	v.SetDefault("publish.s3.endpoint_url", "")
	v.SetDefault("publish.s3.force_path_style", false)
	v.SetDefault("publish.s3.max_retries", 3)
	v.SetDefault("publish.minio.enabled", false)
	v.SetDefault("publish.minio.endpoint", "")
	v.SetDefault("publish.minio.access_key", "")
	v.SetDefault("publish.minio.secret_key", "")
	v.SetDefault("publish.minio.bucket", "")
	v.SetDefault("publish.minio.region", "us-east-1")
	v.SetDefault("publish.minio.secure", false)
	v.SetDefault("publish.azure.enabled", false)
	v.SetDefault("publish.azure.account_name", "")
	v.SetDefault("publish.azure.account_key", "")
	v.SetDefault("publish.azure.sas_token", "")
	v.SetDefault("publish.azure.container", "")
	v.SetDefault("publish.azure.endpoint", "")
	v.SetDefault("publish.hdfs.enabled", false)
	v.SetDefault("publish.hdfs.namenodes", []string{})
	v.SetDefault("publish.hdfs.user", "")
	v.SetDefault("publish.hdfs.dir", "/breeze")
}
