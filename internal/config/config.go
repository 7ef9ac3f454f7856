package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort           = "3000"
	DefaultRequestTimeout = 15 * time.Second
	DefaultSessionTTL     = 15 * time.Minute
	DefaultRetries        = 2
)

// AdminEditPath is appended to WOO_URL when ADMIN_EDIT_URL is unset.
const AdminEditPath = "/wp-admin/admin.php?page=wc-orders&action=edit&id="

// Config holds everything the service reads from the environment.
type Config struct {
	Port string

	SlackSigningSecret string
	SlackBotToken      string

	WooURL      string
	WooUsername string
	WooPassword string

	RequestTimeout  time.Duration
	UpstreamRetries int
	SessionTTL      time.Duration

	AdminEditURL string
	ChromePath   string
}

// WooAPIBase is the REST root all upstream calls are made against.
func (c *Config) WooAPIBase() string {
	return strings.TrimRight(c.WooURL, "/") + "/wp-json/wc/v3"
}

// LoadDotEnv loads .env for local development. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			log.Printf("🔧 Loaded environment from %s", p)
			return
		}
	}
	log.Println("⚠️  No .env file found - using process environment")
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary lookup function so tests
// don't have to touch the real environment.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := &Config{
		Port:               get("PORT"),
		SlackSigningSecret: get("SLACK_SIGNING_SECRET"),
		SlackBotToken:      get("SLACK_BOT_TOKEN"),
		WooURL:             get("WOO_URL"),
		WooUsername:        get("WOO_USERNAME"),
		WooPassword:        get("WOO_PASSWORD"),
		AdminEditURL:       get("ADMIN_EDIT_URL"),
		ChromePath:         get("CHROME_PATH"),
	}
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}

	var missing []string
	for key, val := range map[string]string{
		"SLACK_SIGNING_SECRET": cfg.SlackSigningSecret,
		"SLACK_BOT_TOKEN":      cfg.SlackBotToken,
		"WOO_URL":              cfg.WooURL,
		"WOO_USERNAME":         cfg.WooUsername,
		"WOO_PASSWORD":         cfg.WooPassword,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.AdminEditURL == "" {
		cfg.AdminEditURL = strings.TrimRight(cfg.WooURL, "/") + AdminEditPath
	}

	var err error
	if cfg.RequestTimeout, err = durationOr(get("REQUEST_TIMEOUT"), DefaultRequestTimeout); err != nil {
		return nil, fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
	}
	if cfg.SessionTTL, err = durationOr(get("SESSION_TTL"), DefaultSessionTTL); err != nil {
		return nil, fmt.Errorf("config: SESSION_TTL: %w", err)
	}
	if cfg.UpstreamRetries, err = intOr(get("UPSTREAM_RETRIES"), DefaultRetries); err != nil {
		return nil, fmt.Errorf("config: UPSTREAM_RETRIES: %w", err)
	}

	return cfg, nil
}

func durationOr(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", raw)
	}
	return d, nil
}

func intOr(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}
