package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

type LoginField string

const (
	LoginByEmail    LoginField = "email"
	LoginByUsername LoginField = "username"
)

// Config holds every setting the API reads from the environment.
type Config struct {
	Port  string
	GoEnv string // dev / prod

	DatabaseURL      string // takes priority over the POSTGRES_* parts
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MigrateOnStart   bool

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	BcryptCost       int
	LoginField       LoginField

	RedisAddr     string // empty disables refresh-token revocation
	RedisPassword string
	RedisDB       int

	UploadDir      string
	PublicBaseURL  string
	MaxUploadBytes int64

	LogLevel string

	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

func Load() (Config, error) {
	var err error
	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "prod"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "shop"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTAccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		LoginField:       LoginField(getenv("AUTH_LOGIN_FIELD", string(LoginByEmail))),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		UploadDir: getenv("UPLOAD_DIR", "./uploads"),
		LogLevel:  getenv("LOG_LEVEL", "info"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.PostgresPort, err = atoiOr("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = atoiOr("BCRYPT_COST", 10); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = atoiOr("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	maxUpload, err := atoiOr("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.AccessTTL, err = durationOr("JWT_ACCESS_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = durationOr("JWT_REFRESH_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.MigrateOnStart, err = boolOr("MIGRATE_ON_START", true); err != nil {
		return Config{}, err
	}
	cfg.PublicBaseURL = getenv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return fmt.Errorf("JWT_REFRESH_SECRET must differ from JWT_ACCESS_SECRET")
	}
	if c.LoginField != LoginByEmail && c.LoginField != LoginByUsername {
		return fmt.Errorf("AUTH_LOGIN_FIELD must be email or username")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

func (c Config) Addr() string {
	return ":" + c.Port
}

// DatabaseDSN returns DATABASE_URL when set, otherwise a keyword/value DSN.
func (c Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// UploadURL joins the public base URL with a stored object key.
func (c Config) UploadURL(key string) string {
	u, err := url.JoinPath(c.PublicBaseURL, "uploads", key)
	if err != nil {
		return c.PublicBaseURL + "/uploads/" + key
	}
	return u
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
