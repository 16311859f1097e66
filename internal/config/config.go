package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultOperationSeconds      = 15
	DefaultRequestTimeoutSeconds = 10
	DefaultListenPort            = 8080
)

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level

	DBPath  string `json:"db_path"`
	LogFile string `json:"log_file"`

	// Seeds for the credential store; only written when the store has no value yet.
	APIURL      string `json:"api_url"`
	BearerToken string `json:"bearer_token"`

	OpeningSeconds        int `json:"opening_seconds"`
	ClosingSeconds        int `json:"closing_seconds"`
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
	PollIntervalSeconds   int `json:"poll_interval_seconds"`

	ListenAddr string `json:"listen_addr"`
	ListenPort int    `json:"listen_port"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	NtfyTopic string `json:"ntfy_topic"`

	ServicePath string `json:"service_path"`
	BinaryPath  string `json:"binary_path"`
}

func Load() Config {
	var configFile, logLevel, dbPath string

	flag.StringVar(&configFile, "config-file", "config.json", "Path to gate-remote config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite database file (overrides db_path)")
	flag.Parse()

	file, err := os.Open(configFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.ConfigFile = configFile
	cfg.LogLevel = ParseLogLevel(logLevel)
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	cfg.validate()
	return cfg
}

// LoadFile reads and validates the config at path without touching the
// process flags. A missing file yields the defaults.
func LoadFile(path string) (Config, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.ConfigFile = path
		cfg.LogLevel = zerolog.InfoLevel
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config file: %w", err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ConfigFile = path
	cfg.LogLevel = zerolog.InfoLevel
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode reads a JSON config and applies defaults. It does not validate.
func Decode(r io.Reader) (Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a config with every default applied, used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.DBPath == "" {
		cfg.DBPath = "data/gate.db"
	}
	if cfg.OpeningSeconds == 0 {
		cfg.OpeningSeconds = DefaultOperationSeconds
	}
	if cfg.ClosingSeconds == 0 {
		cfg.ClosingSeconds = DefaultOperationSeconds
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1"
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = DefaultListenPort
	}
	if cfg.DDAgentAddr == "" {
		cfg.DDAgentAddr = "127.0.0.1:8125"
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "gate_remote."
	}
	if cfg.ServicePath == "" {
		cfg.ServicePath = "/etc/systemd/system/gate-remote.service"
	}
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "/usr/local/bin/gate-remote"
	}
}

func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	if err := cfg.check(); err != nil {
		panic(err.Error())
	}
}

func (cfg *Config) check() error {
	var problems []string

	if cfg.OpeningSeconds < 0 {
		problems = append(problems, fmt.Sprintf("opening_seconds must be positive (got %d)", cfg.OpeningSeconds))
	}
	if cfg.ClosingSeconds < 0 {
		problems = append(problems, fmt.Sprintf("closing_seconds must be positive (got %d)", cfg.ClosingSeconds))
	}
	if cfg.RequestTimeoutSeconds < 0 {
		problems = append(problems, fmt.Sprintf("request_timeout_seconds must be positive (got %d)", cfg.RequestTimeoutSeconds))
	}
	if cfg.PollIntervalSeconds < 0 {
		problems = append(problems, fmt.Sprintf("poll_interval_seconds must not be negative (got %d)", cfg.PollIntervalSeconds))
	}
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		problems = append(problems, fmt.Sprintf("listen_port out of range (got %d)", cfg.ListenPort))
	}
	if cfg.APIURL != "" {
		u, err := url.Parse(cfg.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			problems = append(problems, fmt.Sprintf("api_url is not an http(s) URL: %q", cfg.APIURL))
		}
	}
	if cfg.EnableDatadog && cfg.DDAgentAddr == "" {
		problems = append(problems, "dd_agent_addr is required when enable_datadog is set")
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, ", "))
	}
	return nil
}
