package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Channels ChannelConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	SyncTTLSecs   int
	ReplenTTLSecs int
}

// StorageConfig configures the S3-compatible object store used as the
// landing zone for receiving/replenishment CSV imports (§4.6, §4.9).
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ChannelConfig holds settings the Channel Sync pipeline (C10) needs that
// are not part of the inventory ledger itself. SMTP creds are carried only
// as opaque strings (SMTP transport/rendering is a Non-goal).
// ExternalDefaultLocation, PushIntervalMillis and PushTimeoutSeconds are
// loaded but not read by internal/channelsync: PushWarehouse does nothing
// for a warehouse without an external mapping, and the push interval and
// driver HTTP timeout are fixed in that package.
type ChannelConfig struct {
	SMTPHost                string
	SMTPPort                string
	SMTPUser                string
	SMTPPassword            string
	ExternalDefaultLocation string
	PushIntervalMillis      int
	PushTimeoutSeconds      int
}

type AppConfig struct {
	UploadDir string
	DataDir   string
	Env       string
	LogLevel  string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "wms")
		viper.SetDefault("DB_SSLMODE", "disable")

		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SYNC_TTL_SECONDS", 300)
		viper.SetDefault("CACHE_REPLEN_TTL_SECONDS", 60)

		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "wms-imports")
		viper.SetDefault("STORAGE_USE_SSL", true)

		viper.SetDefault("SMTP_HOST", "")
		viper.SetDefault("SMTP_PORT", "587")
		viper.SetDefault("SMTP_USER", "")
		viper.SetDefault("SMTP_PASSWORD", "")
		viper.SetDefault("EXTERNAL_DEFAULT_LOCATION_ID", "")
		viper.SetDefault("CHANNEL_PUSH_INTERVAL_MILLIS", 300)
		viper.SetDefault("CHANNEL_PUSH_TIMEOUT_SECONDS", 30)

		viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
		viper.SetDefault("APP_DATA_DIR", "./data/output")
		viper.SetDefault("APP_ENV", "development")
		viper.SetDefault("APP_LOG_LEVEL", "info")

		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				SyncTTLSecs:   viper.GetInt("CACHE_SYNC_TTL_SECONDS"),
				ReplenTTLSecs: viper.GetInt("CACHE_REPLEN_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Channels: ChannelConfig{
				SMTPHost:                viper.GetString("SMTP_HOST"),
				SMTPPort:                viper.GetString("SMTP_PORT"),
				SMTPUser:                viper.GetString("SMTP_USER"),
				SMTPPassword:            viper.GetString("SMTP_PASSWORD"),
				ExternalDefaultLocation: viper.GetString("EXTERNAL_DEFAULT_LOCATION_ID"),
				PushIntervalMillis:      viper.GetInt("CHANNEL_PUSH_INTERVAL_MILLIS"),
				PushTimeoutSeconds:      viper.GetInt("CHANNEL_PUSH_TIMEOUT_SECONDS"),
			},
			App: AppConfig{
				UploadDir: viper.GetString("APP_UPLOAD_DIR"),
				DataDir:   viper.GetString("APP_DATA_DIR"),
				Env:       viper.GetString("APP_ENV"),
				LogLevel:  viper.GetString("APP_LOG_LEVEL"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}
}
