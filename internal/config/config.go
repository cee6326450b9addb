package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	System   SystemConfig
	Security SecurityConfig
	Audit    AuditConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	StaticDir             string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and login parameters.
type AuthConfig struct {
	// JWTSecret signs and verifies tokens. Empty disables the token feature.
	JWTSecret             string
	SessionTimeoutSeconds int
	ClockSkewSeconds      int
	BcryptCost            int

	// Bootstrap account for the login form, used when no database is configured.
	TestUser     string
	TestPassword string
	TestRoles    []string
}

// SystemConfig describes the privileged identity used for service calls.
type SystemConfig struct {
	User         string
	Roles        []string
	SelfCheckURL string
}

// SecurityConfig holds route level security settings.
type SecurityConfig struct {
	Insecure            bool
	LoginPath           string
	LoginProcessingPath string
	LoginSuccessPath    string
	LogoutPath          string
	ForwardLoginSuccess string
	ForwardLogoutFinish string
}

// AuditConfig controls where authentication events are fanned out.
type AuditConfig struct {
	RedisChannel string
}

// Load reads configuration from the environment and the properties file,
// applying defaults where possible. Environment values win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	src, err := newSource(getEnv("APP_PROPERTIES", "application.properties"))
	if err != nil {
		return nil, err
	}
	return load(src)
}

func load(src *source) (*Config, error) {
	redisDB, err := strconv.Atoi(src.get("redis.db", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	timeout := src.getInt("server.session.timeout", 7200)
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid SERVER_SESSION_TIMEOUT: %d", timeout)
	}

	port := src.get("app.port", "8080")

	cfg := &Config{
		App: AppConfig{
			Name:                  src.get("app.name", "token-auth-service"),
			Env:                   src.get("app.env", "development"),
			Host:                  src.get("app.host", "0.0.0.0"),
			Port:                  port,
			Version:               src.get("app.version", "dev"),
			RequestTimeoutSeconds: src.getInt("http.request.timeout.seconds", 30),
			StaticDir:             src.get("app.static.dir", ""),
		},
		Postgres: PostgresConfig{
			DSN:            src.get("postgres.dsn", ""),
			MaxConns:       int32(src.getInt("postgres.max.conns", 10)),
			MinConns:       int32(src.getInt("postgres.min.conns", 2)),
			RunMigrations:  src.getBool("postgres.run.migrations", true),
			ConnMaxIdleSec: int32(src.getInt("postgres.conn.max.idle.seconds", 30)),
			ConnMaxLifeSec: int32(src.getInt("postgres.conn.max.life.seconds", 300)),
		},
		Redis: RedisConfig{
			Addr:     src.get("redis.addr", ""),
			Password: src.get("redis.password", ""),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: src.get("log.level", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             src.get("jwt.password", ""),
			SessionTimeoutSeconds: timeout,
			ClockSkewSeconds:      src.getInt("jwt.clock.skew.seconds", 5),
			BcryptCost:            src.getInt("auth.bcrypt.cost", 12),
			TestUser:              src.get("security.auth.test.user", ""),
			TestPassword:          src.get("security.auth.test.password", ""),
			TestRoles:             splitList(src.get("security.auth.test.roles", "user")),
		},
		System: SystemConfig{
			User:         src.get("system.user", "system"),
			Roles:        splitList(src.get("system.roles", "user,admin")),
			SelfCheckURL: src.get("system.selfcheck.url", "http://127.0.0.1:"+port),
		},
		Security: SecurityConfig{
			Insecure:            src.getBool("security.insecure", false),
			LoginPath:           "/auth/login",
			LoginProcessingPath: "/auth/authenticate",
			LoginSuccessPath:    "/auth/success",
			LogoutPath:          "/auth/logout",
			ForwardLoginSuccess: src.get("forward.login.success", ""),
			ForwardLogoutFinish: src.get("forward.logout.finish", "/auth/"),
		},
		Audit: AuditConfig{
			RedisChannel: src.get("audit.redis.channel", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether the token feature is configured.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// SessionTimeout is the lifetime of issued tokens.
func (a AuthConfig) SessionTimeout() time.Duration {
	return time.Duration(a.SessionTimeoutSeconds) * time.Second
}

// ClockSkew is the tolerance applied when checking a token's expiry.
func (a AuthConfig) ClockSkew() time.Duration {
	if a.ClockSkewSeconds < 0 {
		return 0
	}
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// source resolves dotted property keys, preferring the environment.
type source struct {
	props map[string]string
}

func newSource(propertiesPath string) (*source, error) {
	props, err := godotenv.Read(propertiesPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read properties %s: %w", propertiesPath, err)
		}
		props = map[string]string{}
	}
	return &source{props: props}, nil
}

// envName maps a property key to its environment variable, e.g.
// jwt.password -> JWT_PASSWORD.
func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func (s *source) get(key, fallback string) string {
	if val := os.Getenv(envName(key)); val != "" {
		return val
	}
	if val, ok := s.props[key]; ok && val != "" {
		return val
	}
	return fallback
}

func (s *source) getInt(key string, fallback int) int {
	val := s.get(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
}

func (s *source) getBool(key string, fallback bool) bool {
	val := s.get(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// splitList splits "user, admin" style lists, dropping empty entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
