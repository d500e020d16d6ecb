// Package config loads server and globe settings from a .env file, an
// optional config.yaml and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	SMTP   SMTPConfig   `mapstructure:"smtp"`
	Admin  AdminConfig  `mapstructure:"admin"`
	DB     DBConfig     `mapstructure:"db"`
	Globe  GlobeConfig  `mapstructure:"globe"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	GinMode         string        `mapstructure:"gin_mode"` // debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// SMTPConfig is where contact form messages are sent.
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	To   string `mapstructure:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Port != "" && s.User != "" && s.Pass != "" && s.To != ""
}

// AdminConfig holds the analytics dashboard credentials.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DBConfig points at the SQLite analytics database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// GlobeConfig tunes the rotating globe widget.
type GlobeConfig struct {
	ScaleZoom           float64        `mapstructure:"scale_zoom"`
	Sensitivity         float64        `mapstructure:"sensitivity"`
	InitialRotation     string         `mapstructure:"initial_rotation"` // "lambda,phi,gamma" in degrees
	TickInterval        time.Duration  `mapstructure:"tick_interval"`
	VisibilityThreshold float64        `mapstructure:"visibility_threshold"` // radians
	Graticule           bool           `mapstructure:"graticule"`
	WorldDataPath       string         `mapstructure:"world_data_path"`
	MaxSessions         int            `mapstructure:"max_sessions"`
	IdleTimeout         time.Duration  `mapstructure:"idle_timeout"`
	Markers             []MarkerConfig `mapstructure:"markers"`

	// Rotation is InitialRotation parsed by Load.
	Rotation [3]float64 `mapstructure:"-"`
}

// MarkerConfig is one location marker. An empty marker list keeps the
// built-in places.
type MarkerConfig struct {
	Label     string  `mapstructure:"label"`
	Longitude float64 `mapstructure:"longitude"`
	Latitude  float64 `mapstructure:"latitude"`
	Category  string  `mapstructure:"category"`
	Weight    float64 `mapstructure:"weight"`
}

// defaultAdminPassword is only acceptable outside release mode.
const defaultAdminPassword = "admin123"

// env maps config keys to the environment variables that override them.
var env = map[string]string{
	"server.port":                "PORT",
	"server.gin_mode":            "GIN_MODE",
	"server.shutdown_timeout":    "SHUTDOWN_TIMEOUT",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
	"smtp.host":                  "SMTP_HOST",
	"smtp.port":                  "SMTP_PORT",
	"smtp.user":                  "SMTP_USER",
	"smtp.pass":                  "SMTP_PASS",
	"smtp.to":                    "TO_EMAIL",
	"admin.username":             "ADMIN_USERNAME",
	"admin.password":             "ADMIN_PASSWORD",
	"db.path":                    "DB_PATH",
	"globe.scale_zoom":           "GLOBE_SCALE_ZOOM",
	"globe.sensitivity":          "GLOBE_SENSITIVITY",
	"globe.initial_rotation":     "GLOBE_INITIAL_ROTATION",
	"globe.tick_interval":        "GLOBE_TICK_INTERVAL",
	"globe.visibility_threshold": "GLOBE_VISIBILITY_THRESHOLD",
	"globe.graticule":            "GLOBE_GRATICULE",
	"globe.world_data_path":      "WORLD_DATA_PATH",
	"globe.max_sessions":         "GLOBE_MAX_SESSIONS",
	"globe.idle_timeout":         "GLOBE_IDLE_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.to", "")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", defaultAdminPassword)
	v.SetDefault("db.path", "./portfolio.db")
	v.SetDefault("globe.scale_zoom", 0.8)
	v.SetDefault("globe.sensitivity", 50)
	v.SetDefault("globe.initial_rotation", "98,10,0")
	v.SetDefault("globe.tick_interval", 200*time.Millisecond)
	v.SetDefault("globe.visibility_threshold", math.Pi/2)
	v.SetDefault("globe.graticule", true)
	v.SetDefault("globe.world_data_path", "")
	v.SetDefault("globe.max_sessions", 256)
	v.SetDefault("globe.idle_timeout", 2*time.Minute)
}

// Load reads configuration using the file named by CONFIG_FILE, or a
// config.yaml in the working directory or ./config when it is unset.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile reads configuration from the given YAML file and the
// environment. An empty path searches the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		// Defaults and the environment are enough without a file.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr returns the listen address in the format ":port".
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.Server.GinMode)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}

	g := &c.Globe
	if g.ScaleZoom <= 0 {
		return fmt.Errorf("GLOBE_SCALE_ZOOM must be positive, got %v", g.ScaleZoom)
	}
	if g.Sensitivity <= 0 {
		return fmt.Errorf("GLOBE_SENSITIVITY must be positive, got %v", g.Sensitivity)
	}
	if g.TickInterval <= 0 {
		return fmt.Errorf("GLOBE_TICK_INTERVAL must be positive, got %s", g.TickInterval)
	}
	if g.VisibilityThreshold <= 0 || g.VisibilityThreshold > math.Pi {
		return fmt.Errorf("GLOBE_VISIBILITY_THRESHOLD must be in (0, pi], got %v", g.VisibilityThreshold)
	}
	if g.MaxSessions <= 0 {
		return fmt.Errorf("GLOBE_MAX_SESSIONS must be positive, got %d", g.MaxSessions)
	}
	if g.IdleTimeout <= 0 {
		return fmt.Errorf("GLOBE_IDLE_TIMEOUT must be positive, got %s", g.IdleTimeout)
	}
	rot, err := ParseRotation(g.InitialRotation)
	if err != nil {
		return fmt.Errorf("GLOBE_INITIAL_ROTATION: %w", err)
	}
	g.Rotation = rot

	for i, m := range g.Markers {
		if !(m.Weight >= 1/math.E) {
			return fmt.Errorf("globe.markers[%d] %q: weight must be at least 1/e, got %v", i, m.Label, m.Weight)
		}
		if m.Latitude < -90 || m.Latitude > 90 {
			return fmt.Errorf("globe.markers[%d] %q: latitude out of range", i, m.Label)
		}
		switch m.Category {
		case "lived", "current", "want":
		default:
			return fmt.Errorf("globe.markers[%d] %q: unknown category %q", i, m.Label, m.Category)
		}
	}

	if c.Server.GinMode == "release" && (c.Admin.Password == "" || c.Admin.Password == defaultAdminPassword) {
		return errors.New("ADMIN_PASSWORD must be set to a non-default value in release mode")
	}
	return nil
}

// ParseRotation parses "lambda,phi[,gamma]" in degrees.
func ParseRotation(s string) ([3]float64, error) {
	var rot [3]float64
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return rot, fmt.Errorf("want 2 or 3 comma-separated angles, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return rot, fmt.Errorf("angle %d: %w", i, err)
		}
		rot[i] = f
	}
	return rot, nil
}
