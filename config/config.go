// Package config loads the settings the client and the development backend
// read once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"mapquester/utils/logger"
)

// LocationSourceType names the live position provider.
type LocationSourceType string

const (
	LocationGeoClue LocationSourceType = "geoclue"
	LocationRedis   LocationSourceType = "redis"
	LocationNone    LocationSourceType = "none"
)

// Config holds client and development backend settings.
type Config struct {
	Dev             bool
	BackendDevURL   string
	BackendProdURL  string
	TokenRefreshURL string
	APIPrefix       string
	MapAccessToken  string

	PageSize        int
	PendingPointTTL time.Duration
	HighlightTTL    time.Duration
	NoticeTTL       time.Duration
	FilterAutoApply bool

	InitialLatitude  float64
	InitialLongitude float64
	InitialZoom      float64

	CredentialsPath string

	LocationSource   LocationSourceType
	GeoClueDesktopID string
	RedisAddr        string
	RedisDB          int

	RateLimitRPS   float64
	RateLimitBurst int
	HTTPTimeout    time.Duration

	Debug bool

	// Development backend
	Port           string
	JWTSecret      string
	MongoURI       string
	AllowedOrigins []string
	MediaDir       string
}

// fileConfig mirrors Config for the optional YAML file. Durations are strings
// such as "3s".
type fileConfig struct {
	Dev             *bool    `yaml:"dev"`
	BackendDevURL   string   `yaml:"backend_dev_url"`
	BackendProdURL  string   `yaml:"backend_prod_url"`
	TokenRefreshURL string   `yaml:"token_refresh_url"`
	APIPrefix       *string  `yaml:"api_prefix"`
	MapAccessToken  string   `yaml:"map_access_token"`
	PageSize        int      `yaml:"page_size"`
	PendingPointTTL string   `yaml:"pending_point_ttl"`
	HighlightTTL    string   `yaml:"highlight_ttl"`
	NoticeTTL       string   `yaml:"notice_ttl"`
	FilterAutoApply *bool    `yaml:"filter_auto_apply"`
	InitialLatitude *float64 `yaml:"initial_latitude"`
	InitialLong     *float64 `yaml:"initial_longitude"`
	InitialZoom     *float64 `yaml:"initial_zoom"`
	CredentialsPath string   `yaml:"credentials_path"`
	LocationSource  string   `yaml:"location_source"`
	GeoClueDesktop  string   `yaml:"geoclue_desktop_id"`
	RedisAddr       string   `yaml:"redis_addr"`
	RedisDB         *int     `yaml:"redis_db"`
	RateLimitRPS    float64  `yaml:"rate_limit_rps"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	HTTPTimeout     string   `yaml:"http_timeout"`
	Port            string   `yaml:"port"`
	JWTSecret       string   `yaml:"jwt_secret"`
	MongoURI        string   `yaml:"mongodb_uri"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MediaDir        string   `yaml:"media_dir"`
	Debug           *bool    `yaml:"debug"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BackendDevURL:    "http://localhost:8000",
		BackendProdURL:   "http://localhost:8000",
		APIPrefix:        "/api/v1",
		PageSize:         10,
		PendingPointTTL:  3 * time.Second,
		HighlightTTL:     3 * time.Second,
		NoticeTTL:        5 * time.Second,
		InitialLatitude:  40.7128,
		InitialLongitude: -74.0060,
		InitialZoom:      12,
		CredentialsPath:  "mapquester.sqlite",
		LocationSource:   LocationNone,
		GeoClueDesktopID: "mapquester.desktop",
		RedisAddr:        "localhost:6379",
		RateLimitRPS:     10,
		RateLimitBurst:   20,
		HTTPTimeout:      15 * time.Second,
		Port:             ":8000",
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Load reads .env (if present), then the YAML file named by MAPQUESTER_CONFIG
// (if set), then environment variables, each layer overriding the previous.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment only")
	}

	cfg := Default()
	if path := os.Getenv("MAPQUESTER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// BackendURL is the base URL selected by the dev toggle.
func (c Config) BackendURL() string {
	if c.Dev {
		return strings.TrimRight(c.BackendDevURL, "/")
	}
	return strings.TrimRight(c.BackendProdURL, "/")
}

// RefreshURL is the token refresh endpoint.
func (c Config) RefreshURL() string {
	if c.TokenRefreshURL != "" {
		return c.TokenRefreshURL
	}
	return c.BackendURL() + "/api/token/refresh/"
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.BackendURL() == "" {
		return fmt.Errorf("backend URL is empty")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	switch c.LocationSource {
	case LocationGeoClue, LocationRedis, LocationNone:
	default:
		return fmt.Errorf("unknown LOCATION_SOURCE %q", c.LocationSource)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Dev != nil {
		c.Dev = *fc.Dev
	}
	setString(&c.BackendDevURL, fc.BackendDevURL)
	setString(&c.BackendProdURL, fc.BackendProdURL)
	setString(&c.TokenRefreshURL, fc.TokenRefreshURL)
	if fc.APIPrefix != nil {
		c.APIPrefix = *fc.APIPrefix
	}
	setString(&c.MapAccessToken, fc.MapAccessToken)
	if fc.PageSize > 0 {
		c.PageSize = fc.PageSize
	}
	for _, d := range []struct {
		dst *time.Duration
		raw string
	}{
		{&c.PendingPointTTL, fc.PendingPointTTL},
		{&c.HighlightTTL, fc.HighlightTTL},
		{&c.NoticeTTL, fc.NoticeTTL},
		{&c.HTTPTimeout, fc.HTTPTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		*d.dst = v
	}
	if fc.FilterAutoApply != nil {
		c.FilterAutoApply = *fc.FilterAutoApply
	}
	if fc.InitialLatitude != nil {
		c.InitialLatitude = *fc.InitialLatitude
	}
	if fc.InitialLong != nil {
		c.InitialLongitude = *fc.InitialLong
	}
	if fc.InitialZoom != nil {
		c.InitialZoom = *fc.InitialZoom
	}
	setString(&c.CredentialsPath, fc.CredentialsPath)
	if fc.LocationSource != "" {
		c.LocationSource = LocationSourceType(strings.ToLower(fc.LocationSource))
	}
	setString(&c.GeoClueDesktopID, fc.GeoClueDesktop)
	setString(&c.RedisAddr, fc.RedisAddr)
	if fc.RedisDB != nil {
		c.RedisDB = *fc.RedisDB
	}
	if fc.RateLimitRPS > 0 {
		c.RateLimitRPS = fc.RateLimitRPS
	}
	if fc.RateLimitBurst > 0 {
		c.RateLimitBurst = fc.RateLimitBurst
	}
	setString(&c.Port, fc.Port)
	setString(&c.JWTSecret, fc.JWTSecret)
	setString(&c.MongoURI, fc.MongoURI)
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	setString(&c.MediaDir, fc.MediaDir)
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	return nil
}

func (c *Config) loadEnv() error {
	var err error
	if v, ok := lookup("MAPQUESTER_DEV"); ok {
		if c.Dev, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid MAPQUESTER_DEV value: %w", err)
		}
	}
	if v, ok := lookup("BACKEND_DEV_URL"); ok {
		c.BackendDevURL = v
	}
	if v, ok := lookup("BACKEND_PROD_URL"); ok {
		c.BackendProdURL = v
	}
	if v, ok := lookup("TOKEN_REFRESH_URL"); ok {
		c.TokenRefreshURL = v
	}
	if v, ok := os.LookupEnv("API_PREFIX"); ok {
		c.APIPrefix = strings.TrimSpace(v)
	}
	if v, ok := lookup("MAP_ACCESS_TOKEN"); ok {
		c.MapAccessToken = v
	}
	if v, ok := lookup("PAGE_SIZE"); ok {
		if c.PageSize, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid PAGE_SIZE value: %w", err)
		}
	}
	for name, dst := range map[string]*time.Duration{
		"PENDING_POINT_TTL": &c.PendingPointTTL,
		"HIGHLIGHT_TTL":     &c.HighlightTTL,
		"NOTICE_TTL":        &c.NoticeTTL,
		"HTTP_TIMEOUT":      &c.HTTPTimeout,
	} {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*dst = d
		}
	}
	if v, ok := lookup("FILTER_AUTO_APPLY"); ok {
		if c.FilterAutoApply, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid FILTER_AUTO_APPLY value: %w", err)
		}
	}
	for name, dst := range map[string]*float64{
		"INITIAL_LATITUDE":  &c.InitialLatitude,
		"INITIAL_LONGITUDE": &c.InitialLongitude,
		"INITIAL_ZOOM":      &c.InitialZoom,
		"RATE_LIMIT_RPS":    &c.RateLimitRPS,
	} {
		if v, ok := lookup(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", name, err)
			}
			*dst = f
		}
	}
	if v, ok := lookup("CREDENTIALS_PATH"); ok {
		c.CredentialsPath = v
	}
	if v, ok := lookup("LOCATION_SOURCE"); ok {
		c.LocationSource = LocationSourceType(strings.ToLower(v))
	}
	if v, ok := lookup("GEOCLUE_DESKTOP_ID"); ok {
		c.GeoClueDesktopID = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		c.RedisAddr = v
	}
	if v, ok := lookup("REDIS_DB"); ok {
		if c.RedisDB, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid REDIS_DB value: %w", err)
		}
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok {
		if c.RateLimitBurst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST value: %w", err)
		}
	}
	if v, ok := lookup("PORT"); ok {
		if !strings.HasPrefix(v, ":") && !strings.Contains(v, ":") {
			v = ":" + v
		}
		c.Port = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		c.JWTSecret = v
	}
	if v, ok := lookup("MONGODB_URI"); ok {
		c.MongoURI = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("MEDIA_DIR"); ok {
		c.MediaDir = v
	}
	if v, ok := lookup("DEBUG"); ok {
		if c.Debug, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid DEBUG value: %w", err)
		}
	}
	return nil
}

// lookup returns a trimmed, non-empty environment value.
func lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
