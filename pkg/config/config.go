package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Supported asset storage types
const (
	StorageLocal      = "local"
	StorageCloudinary = "cloudinary"
	StorageS3         = "s3"
)

// Asset cleanup policies applied when deleting a blog's image fails
const (
	CleanupWarn   = "warn"
	CleanupStrict = "strict"
)

// Config holds the configuration for the blog server
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Blog     BlogConfig     `yaml:"blog"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver         string        `yaml:"driver"` // mongo, postgres
	MongoURI       string        `yaml:"mongo_uri"`
	MongoDatabase  string        `yaml:"mongo_database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	DBName         string        `yaml:"dbname"`
	SSLMode        string        `yaml:"sslmode"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// StorageConfig holds image asset storage configuration
type StorageConfig struct {
	Type           string           `yaml:"type"` // local, cloudinary, s3
	LocalPath      string           `yaml:"local_path"`
	PublicPrefix   string           `yaml:"public_prefix"`
	MaxUploadBytes int64            `yaml:"max_upload_bytes"`
	Cloudinary     CloudinaryConfig `yaml:"cloudinary"`
	S3             S3Config         `yaml:"s3"`
}

// CloudinaryConfig holds remote media host credentials
type CloudinaryConfig struct {
	CloudName    string `yaml:"cloud_name"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	UploadFolder string `yaml:"upload_folder"`
}

// S3Config holds S3 bucket settings
type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	Prefix        string `yaml:"prefix"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// BlogConfig holds blog lifecycle settings
type BlogConfig struct {
	Categories    []string `yaml:"categories"`
	CleanupPolicy string   `yaml:"cleanup_policy"` // warn, strict
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.overlayEnv()
	return cfg
}

// LoadFromFile loads configuration from a YAML file. Environment variables
// override values from the file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.overlayEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.Host, "0.0.0.0")
	setDefaultInt(&c.Server.Port, 3000)
	setDefaultDuration(&c.Server.ReadTimeout, 30*time.Second)
	setDefaultDuration(&c.Server.WriteTimeout, 60*time.Second)
	setDefaultDuration(&c.Server.IdleTimeout, 120*time.Second)

	setDefault(&c.Database.Driver, DriverMongo)
	setDefault(&c.Database.MongoDatabase, "blog")
	setDefaultDuration(&c.Database.ConnectTimeout, 10*time.Second)
	setDefault(&c.Database.Host, "localhost")
	setDefaultInt(&c.Database.Port, 5432)
	setDefault(&c.Database.User, "blog")
	setDefault(&c.Database.DBName, "blog")
	setDefault(&c.Database.SSLMode, "disable")

	setDefault(&c.Redis.Host, "localhost")
	setDefaultInt(&c.Redis.Port, 6379)
	setDefaultDuration(&c.Redis.TTL, 5*time.Minute)

	setDefault(&c.Storage.Type, StorageLocal)
	setDefault(&c.Storage.LocalPath, "./public/uploads")
	setDefault(&c.Storage.PublicPrefix, "/uploads")
	if c.Storage.MaxUploadBytes == 0 {
		c.Storage.MaxUploadBytes = 5 << 20
	}
	setDefault(&c.Storage.Cloudinary.UploadFolder, "blog-app")
	setDefault(&c.Storage.S3.Region, "us-east-1")
	setDefault(&c.Storage.S3.Prefix, "blog-images")

	if len(c.Blog.Categories) == 0 {
		c.Blog.Categories = []string{"Technology", "Startup", "Lifestyle"}
	}
	setDefault(&c.Blog.CleanupPolicy, CleanupWarn)

	setDefault(&c.Logging.Level, "info")
	setDefault(&c.Logging.Format, "json")
}

func (c *Config) overlayEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.MongoURI = getEnv("MONGODB_URI", c.Database.MongoURI)
	c.Database.MongoDatabase = getEnv("MONGODB_DATABASE", c.Database.MongoDatabase)
	c.Database.ConnectTimeout = getEnvDuration("DB_CONNECT_TIMEOUT", c.Database.ConnectTimeout)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.TTL = getEnvDuration("REDIS_TTL", c.Redis.TTL)

	c.Storage.Type = getEnv("STORAGE_TYPE", c.Storage.Type)
	c.Storage.LocalPath = getEnv("STORAGE_LOCAL_PATH", c.Storage.LocalPath)
	c.Storage.PublicPrefix = getEnv("STORAGE_PUBLIC_PREFIX", c.Storage.PublicPrefix)
	c.Storage.MaxUploadBytes = int64(getEnvInt("STORAGE_MAX_UPLOAD_BYTES", int(c.Storage.MaxUploadBytes)))
	c.Storage.Cloudinary.CloudName = getEnv("CLOUDINARY_CLOUD_NAME", c.Storage.Cloudinary.CloudName)
	c.Storage.Cloudinary.APIKey = getEnv("CLOUDINARY_API_KEY", c.Storage.Cloudinary.APIKey)
	c.Storage.Cloudinary.APISecret = getEnv("CLOUDINARY_API_SECRET", c.Storage.Cloudinary.APISecret)
	c.Storage.Cloudinary.UploadFolder = getEnv("CLOUDINARY_UPLOAD_FOLDER", c.Storage.Cloudinary.UploadFolder)
	c.Storage.S3.Bucket = getEnv("S3_BUCKET", c.Storage.S3.Bucket)
	c.Storage.S3.Region = getEnv("S3_REGION", c.Storage.S3.Region)
	c.Storage.S3.Endpoint = getEnv("S3_ENDPOINT", c.Storage.S3.Endpoint)
	c.Storage.S3.Prefix = getEnv("S3_PREFIX", c.Storage.S3.Prefix)
	c.Storage.S3.PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", c.Storage.S3.PublicBaseURL)

	c.Blog.Categories = getEnvList("BLOG_CATEGORIES", c.Blog.Categories)
	c.Blog.CleanupPolicy = getEnv("BLOG_CLEANUP_POLICY", c.Blog.CleanupPolicy)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate checks that the selected backends are fully configured.
// A remote store without credentials is an error rather than a silent
// fallback to local storage.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is not set")
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	switch c.Blog.CleanupPolicy {
	case CleanupWarn, CleanupStrict:
	default:
		return fmt.Errorf("unsupported cleanup policy: %s", c.Blog.CleanupPolicy)
	}

	if len(c.Blog.Categories) == 0 {
		return fmt.Errorf("at least one blog category is required")
	}
	return nil
}

// Validate checks the storage section for the configured type
func (s *StorageConfig) Validate() error {
	switch s.Type {
	case StorageLocal:
		if s.LocalPath == "" {
			return fmt.Errorf("local storage path is not set")
		}
	case StorageCloudinary:
		if !s.Cloudinary.Configured() {
			return fmt.Errorf("cloudinary environment variables are not configured")
		}
	case StorageS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket name is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", s.Type)
	}
	return nil
}

// Configured reports whether all Cloudinary credentials are present
func (c *CloudinaryConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseURL returns a PostgreSQL connection string
func (d *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisAddr returns the Redis address
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setDefaultInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func setDefaultDuration(field *time.Duration, value time.Duration) {
	if *field == 0 {
		*field = value
	}
}
