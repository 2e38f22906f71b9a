package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Willizberc/Pexfin/internal/database"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Pexfin"`
		Port     int    `envconfig:"PORT" default:"8080"`
		Env      string `envconfig:"APP_ENV" default:"development"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
		Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"pexfin"`
		SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`

		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
		ConnectTimeout  time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
		AllowedOrigins  []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
	}

	Auth struct {
		JWTSecret string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
		TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"168h"`
		ResetTTL  time.Duration `envconfig:"AUTH_RESET_TTL" default:"1h"`
	}

	Assistant struct {
		APIKey        string  `envconfig:"GEMINI_API_KEY"`
		Model         string  `envconfig:"ASSISTANT_MODEL" default:"gemini-2.5-flash"`
		RatePerMin    float64 `envconfig:"ASSISTANT_RATE_PER_MIN" default:"10"`
		Burst         int     `envconfig:"ASSISTANT_BURST" default:"3"`
		WithStatement bool    `envconfig:"ASSISTANT_WITH_STATEMENT" default:"true"`
	}

	Media struct {
		Bucket string `envconfig:"MEDIA_BUCKET"`
	}

	Reconcile struct {
		Enabled  bool   `envconfig:"RECONCILE_ENABLED" default:"true"`
		Schedule string `envconfig:"RECONCILE_SCHEDULE" default:"@every 1h"`
	}
}

// Pool returns the connection pool settings.
func (c *Config) Pool() database.Pool {
	return database.Pool{
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
		ConnectTimeout:  c.DB.ConnectTimeout,
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// Development reports whether the process runs with developer-friendly output.
func (c *Config) Development() bool {
	return c.App.Env == "development"
}

// Location is the zone calendar months are reported in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.App.Timezone, err)
	}

	return loc, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
