package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvDevelopment 开发环境，允许使用内置的本地默认值。
	EnvDevelopment = "development"
	// EnvProduction 默认环境，敏感配置必须由外部提供。
	EnvProduction = "production"

	devSessionSecret  = "tinynews-dev-session-secret"
	devDatabaseUser   = "myuser"
	devDatabasePass   = "mypassword"
	minSessionSecret  = 16
	defaultUploadSize = 10 << 20
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	Env        string
	ListenAddr string
	Port       string
	GinMode    string

	Database DatabaseConfig
	Session  SessionConfig
	Upload   UploadConfig
	Log      LogConfig

	CORSAllowedOrigins []string
}

// DatabaseConfig holds connection settings for the selected driver.
type DatabaseConfig struct {
	Driver          string
	Path            string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SessionConfig 控制会话存储与 Cookie 行为。
type SessionConfig struct {
	Secret string
	Store  string
	Name   string
	MaxAge time.Duration
}

// UploadConfig describes where attachments live on disk and how they are served.
type UploadConfig struct {
	Dir      string
	URLPath  string
	MaxBytes int64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Supported values for DB_DRIVER and SESSION_STORE.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	SessionStoreDatabase = "database"
	SessionStoreCookie   = "cookie"
)

// Load 从环境变量（以及可选的 .env 文件）读取应用配置并校验。
func Load() (AppConfig, error) {
	// .env 是可选的，缺失时直接使用进程环境变量
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from the current environment without validating it.
func FromEnv() AppConfig {
	env := strings.ToLower(getEnv("APP_ENV", EnvProduction))
	dev := env == EnvDevelopment

	port := getEnv("PORT", "3000")
	listenAddr := getEnv("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverSQLite))
	defaultDBPort := "5432"
	if driver == DriverMySQL {
		defaultDBPort = "3306"
	}

	dbUser := firstEnv("DB_USER", "POSTGRES_USER")
	dbPassword := firstEnv("DB_PASSWORD", "POSTGRES_PASSWORD")
	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if dev {
		if dbUser == "" {
			dbUser = devDatabaseUser
		}
		if dbPassword == "" {
			dbPassword = devDatabasePass
		}
		if sessionSecret == "" {
			sessionSecret = devSessionSecret
		}
	}

	dbName := firstEnv("DB_NAME", "POSTGRES_DB")
	if dbName == "" {
		dbName = "mydatabase"
	}

	return AppConfig{
		Env:        env,
		ListenAddr: listenAddr,
		Port:       port,
		GinMode:    getEnv("GIN_MODE", "release"),
		Database: DatabaseConfig{
			Driver:          driver,
			Path:            getEnv("DATABASE_PATH", "tinynews.db"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", defaultDBPort),
			User:            dbUser,
			Password:        dbPassword,
			Name:            dbName,
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Session: SessionConfig{
			Secret: sessionSecret,
			Store:  strings.ToLower(getEnv("SESSION_STORE", SessionStoreDatabase)),
			Name:   getEnv("SESSION_NAME", "tinynews_session"),
			MaxAge: getDurationEnv("SESSION_MAX_AGE", 24*time.Hour),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "uploads"),
			URLPath:  getEnv("UPLOAD_URL_PATH", "/uploads"),
			MaxBytes: getInt64Env("UPLOAD_MAX_BYTES", defaultUploadSize),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}
}

// IsDevelopment reports whether insecure local defaults are permitted.
func (c AppConfig) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Validate checks that the configuration is usable and carries no insecure defaults
// outside development.
func (c AppConfig) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Session.Store {
	case SessionStoreDatabase, SessionStoreCookie:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.Session.Store)
	}

	if c.IsDevelopment() {
		return nil
	}

	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET is required outside development")
	}
	if len(c.Session.Secret) < minSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecret)
	}
	if c.Session.Secret == devSessionSecret {
		return errors.New("SESSION_SECRET must not use the development default")
	}
	if c.Database.Driver != DriverSQLite && c.Database.Password == "" {
		return errors.New("DB_PASSWORD is required outside development")
	}
	return nil
}

// DSN returns the connection string for network drivers. sqlite uses Path directly.
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
		)
	case DriverMySQL:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.Name,
		)
	default:
		return c.Path
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
