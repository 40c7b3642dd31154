package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultDatabase = "smartaquarv2"

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"5000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty   bool   `env:"LOG_PRETTY" envDefault:"false"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017/smartaquarv2"`
	MongoDatabase string `env:"MONGODB_DATABASE"`
	RedisURI      string `env:"REDIS_URI"`
	NATSURL       string `env:"NATS_URL"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"smartaquarv2"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"8760h"`

	Confirmed ConfirmedConfig `envPrefix:"CONFIRMED_"`

	// CORS: the frontend origins allowed to call the API
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	// Hostname only, checked in production when set
	AllowedHost string `env:"ALLOWED_HOST"`
	// Proxies allowed to set X-Forwarded-For, as CIDRs or addresses
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	UploadsDir          string `env:"UPLOADS_DIR" envDefault:"uploads"`
	CloudinaryName      string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	CampaignDelay time.Duration `env:"CAMPAIGN_DISPATCH_DELAY" envDefault:"1s"`
}

// ConfirmedConfig configures the 1Confirmed identity and credit provider.
type ConfirmedConfig struct {
	BaseURL         string        `env:"BASE_URL" envDefault:"https://1confirmed.com"`
	RegisterTimeout time.Duration `env:"REGISTER_TIMEOUT" envDefault:"30s"`
	ProfileTimeout  time.Duration `env:"PROFILE_TIMEOUT" envDefault:"10s"`
	CreditTimeout   time.Duration `env:"CREDIT_TIMEOUT" envDefault:"5s"`
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"60s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.AllowedOrigins = cleanOrigins(cfg.AllowedOrigins)
	cfg.AllowedHost = hostOnly(cfg.AllowedHost)
	cfg.Confirmed.BaseURL = strings.TrimRight(cfg.Confirmed.BaseURL, "/")
	return &cfg, nil
}

// DatabaseName returns MONGODB_DATABASE, else the path of the connection
// string, else the default database.
func (c *Config) DatabaseName() string {
	if c.MongoDatabase != "" {
		return c.MongoDatabase
	}
	u, err := url.Parse(c.MongoURI)
	if err != nil {
		return defaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultDatabase
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c *Config) RedisEnabled() bool { return c.RedisURI != "" }
func (c *Config) NATSEnabled() bool  { return c.NATSURL != "" }

func cleanOrigins(origins []string) []string {
	seen := make(map[string]bool, len(origins))
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[strings.ToLower(o)] {
			continue
		}
		seen[strings.ToLower(o)] = true
		out = append(out, o)
	}
	return out
}

// hostOnly strips scheme, path and port: "https://api.smartaqar.ma:443/x" -> "api.smartaqar.ma".
func hostOnly(h string) string {
	h = strings.TrimSpace(h)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return h
}
