package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DevJWTSecret is the signing key used when MICROBLOG_JWT_SECRET is unset.
// Anyone can forge tokens with it.
const DevJWTSecret = "supersecretjwtkey"

type Config struct {
	Addr       string `env:"MICROBLOG_ADDR" env-default:""`
	Version    string `env:"MICROBLOG_VERSION" env-default:"dev"`
	Commit     string `env:"MICROBLOG_COMMIT" env-default:"unknown"`
	BuildTime  string `env:"MICROBLOG_BUILD_TIME" env-default:"unknown"`
	Store      StoreConfig
	Auth       AuthConfig
	Log        LogConfig
	RateLimits RateLimits
	Redis      RedisConfig

	// TrustProxy takes the client address for rate limiting from the first
	// X-Forwarded-For hop. Enable only behind a proxy that sets it.
	TrustProxy bool `env:"MICROBLOG_TRUST_PROXY" env-default:"false"`

	// CascadeUserContent removes a deleted user's posts and comments.
	CascadeUserContent bool `env:"MICROBLOG_CASCADE_USER_CONTENT" env-default:"true"`
}

type StoreConfig struct {
	Driver     string `env:"MICROBLOG_STORE" env-default:"sqlite"`
	SQLitePath string `env:"MICROBLOG_DB" env-default:"microblog.db"`
	MongoURI   string `env:"MICROBLOG_MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDB    string `env:"MICROBLOG_MONGO_DB" env-default:"microblog"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"MICROBLOG_JWT_SECRET" env-default:"supersecretjwtkey"`
	Issuer     string        `env:"MICROBLOG_JWT_ISSUER" env-default:"microblog"`
	TokenTTL   time.Duration `env:"MICROBLOG_TOKEN_TTL" env-default:"1h"`
	BcryptCost int           `env:"MICROBLOG_BCRYPT_COST" env-default:"10"`
}

type LogConfig struct {
	Level     string `env:"MICROBLOG_LOG_LEVEL" env-default:"info"`
	File      string `env:"MICROBLOG_LOG_FILE" env-default:""`
	ErrorFile string `env:"MICROBLOG_ERROR_LOG_FILE" env-default:""`
}

type RateLimits struct {
	RegisterPerMinute int `env:"MICROBLOG_RL_REGISTER_PER_MIN" env-default:"10"`
	LoginPerMinute    int `env:"MICROBLOG_RL_LOGIN_PER_MIN" env-default:"20"`
	PostPerMinute     int `env:"MICROBLOG_RL_POST_PER_MIN" env-default:"10"`
	CommentPerMinute  int `env:"MICROBLOG_RL_COMMENT_PER_MIN" env-default:"30"`
}

// RedisConfig enables the shared rate limiter when Addr is set.
type RedisConfig struct {
	Addr     string `env:"MICROBLOG_REDIS_ADDR" env-default:""`
	Password string `env:"MICROBLOG_REDIS_PASSWORD" env-default:""`
	DB       int    `env:"MICROBLOG_REDIS_DB" env-default:"0"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if cfg.Addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Addr = ":" + port
		} else {
			cfg.Addr = ":8080"
		}
	}
	switch cfg.Store.Driver {
	case "sqlite", "mongo":
	default:
		return Config{}, fmt.Errorf("MICROBLOG_STORE: unknown driver %q", cfg.Store.Driver)
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("MICROBLOG_JWT_SECRET must not be empty")
	}
	return cfg, nil
}

// Warnings lists settings that are unsafe outside development.
func (c Config) Warnings() []string {
	var out []string
	if c.Auth.JWTSecret == DevJWTSecret {
		out = append(out, "MICROBLOG_JWT_SECRET is unset; tokens are signed with the public development key")
	}
	if len(c.Auth.JWTSecret) < 32 && c.Auth.JWTSecret != DevJWTSecret {
		out = append(out, "MICROBLOG_JWT_SECRET is shorter than 32 bytes")
	}
	return out
}
