package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config contains runtime configuration required by the relay.
type Config struct {
	ListenAddr         string        `yaml:"listen_addr"`
	BackendURL         string        `yaml:"backend_url"`
	BackendInsecureTLS bool          `yaml:"backend_insecure_tls"`
	PresenceTimeout    time.Duration `yaml:"presence_timeout"`
	WSPath             string        `yaml:"ws_path"`
	WSSendQueue        int           `yaml:"ws_send_queue"`
	CORSOrigins        []string      `yaml:"cors_origins"`
	StaticDir          string        `yaml:"static_dir"`
	LogLevel           string        `yaml:"log_level"`
	LogFormat          string        `yaml:"log_format"`
	// WebhookAPIKeys maps apiKey -> caller name. Empty disables the gate.
	WebhookAPIKeys map[string]string `yaml:"webhook_api_keys"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ListenAddr:      ":6969",
		BackendURL:      "https://localhost:8000",
		PresenceTimeout: 10 * time.Second,
		WSPath:          "/socket",
		WSSendQueue:     256,
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
		LogFormat:       "json",
		WebhookAPIKeys:  map[string]string{},
	}
}

// Load builds the configuration. Precedence: flags > environment > YAML file
// (--config or CONFIG_FILE) > defaults.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a YAML config file")
	listen := fs.String("listen", "", "listen address, e.g. :6969")
	backendURL := fs.String("backend-url", "", "base URL of the backend")
	insecure := fs.Bool("backend-insecure-tls", false, "skip TLS verification for the backend")
	timeout := fs.Duration("presence-timeout", 0, "timeout for presence calls to the backend")
	wsPath := fs.String("ws-path", "", "websocket endpoint path")
	sendQueue := fs.Int("ws-send-queue", 0, "outbound queue length per websocket client")
	origins := fs.StringSlice("cors-origins", nil, "allowed CORS origins, * for any")
	staticDir := fs.String("static-dir", "", "directory served for unmatched GET requests")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	path := *configFile
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if fs.Changed("listen") {
		cfg.ListenAddr = *listen
	}
	if fs.Changed("backend-url") {
		cfg.BackendURL = *backendURL
	}
	if fs.Changed("backend-insecure-tls") {
		cfg.BackendInsecureTLS = *insecure
	}
	if fs.Changed("presence-timeout") {
		cfg.PresenceTimeout = *timeout
	}
	if fs.Changed("ws-path") {
		cfg.WSPath = *wsPath
	}
	if fs.Changed("ws-send-queue") {
		cfg.WSSendQueue = *sendQueue
	}
	if fs.Changed("cors-origins") {
		cfg.CORSOrigins = *origins
	}
	if fs.Changed("static-dir") {
		cfg.StaticDir = *staticDir
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}

	return cfg, cfg.validate()
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := env("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := env("BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := env("BACKEND_INSECURE_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("BACKEND_INSECURE_TLS must be a boolean")
		}
		cfg.BackendInsecureTLS = b
	}
	if v := env("PRESENCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("PRESENCE_TIMEOUT must be a duration, e.g. 10s")
		}
		cfg.PresenceTimeout = d
	}
	if v := env("WS_PATH"); v != "" {
		cfg.WSPath = v
	}
	if v := env("WS_SEND_QUEUE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("WS_SEND_QUEUE must be an integer")
		}
		cfg.WSSendQueue = n
	}
	if v := env("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := env("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := env("WEBHOOK_API_KEYS"); v != "" {
		keys, err := ParseAPIKeys(v)
		if err != nil {
			return err
		}
		cfg.WebhookAPIKeys = keys
	}
	return nil
}

// ParseAPIKeys parses "name:key,name:key" into apiKey -> name.
func ParseAPIKeys(raw string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`WEBHOOK_API_KEYS must be "name:key,name:key"`)
		}
		name := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if name == "" || key == "" {
			return nil, errors.New(`WEBHOOK_API_KEYS must be "name:key,name:key"`)
		}
		keys[key] = name
	}
	return keys, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address required")
	}
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("backend URL required")
	}
	if c.PresenceTimeout <= 0 {
		return errors.New("presence timeout must be positive")
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return errors.New("websocket path must start with /")
	}
	if c.WSSendQueue <= 0 {
		return errors.New("websocket send queue must be positive")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
