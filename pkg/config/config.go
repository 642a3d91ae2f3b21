package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultController        = "https://localhost:9501"
	DefaultInterval          = time.Second
	DefaultRequestsPerSecond = 10
	DefaultGraphWidth        = 40
	DefaultGraphHeight       = 10

	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Options is built once by the command line layer and handed to every
// component that needs it.
type Options struct {
	Controller        string        `yaml:"controller"`
	RPCToken          string        `yaml:"rpc_token"`
	User              string        `yaml:"cmon_user"`
	Password          string        `yaml:"password"`
	InsecureTLS       bool          `yaml:"insecure_tls"`
	Color             string        `yaml:"color"`
	Interval          time.Duration `yaml:"interval"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	// Log makes "job wait" stream job messages instead of the progress line.
	Log bool `yaml:"log"`
	// LogTimestamps prefixes streamed job messages with their creation time.
	LogTimestamps bool `yaml:"log_timestamps"`
	// SkipUnchangedLines suppresses re-rendering of an identical progress line.
	SkipUnchangedLines bool `yaml:"skip_unchanged_lines"`

	Graph GraphOptions `yaml:"graph"`
}

type GraphOptions struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Aggregate string `yaml:"aggregate"`
}

func Defaults() *Options {
	return &Options{
		Controller:        DefaultController,
		Color:             ColorAuto,
		Interval:          DefaultInterval,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Graph: GraphOptions{
			Width:  DefaultGraphWidth,
			Height: DefaultGraphHeight,
		},
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".s9s", "cmondog.yaml")
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. A missing file is only an error when the path was
// given explicitly.
func Load(path string) (*Options, error) {
	opts := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case err != nil:
			return nil, WrapError(err, "read config file %q", path)
		default:
			if err := yaml.Unmarshal(data, opts); err != nil {
				return nil, WrapError(err, "parse config file %q", path)
			}
		}
	}

	if err := applyEnv(opts); err != nil {
		return nil, err
	}

	return opts, nil
}

func applyEnv(opts *Options) error {
	opts.Controller = getEnv("CMONDOG_CONTROLLER", opts.Controller)
	opts.RPCToken = getEnv("CMONDOG_RPC_TOKEN", opts.RPCToken)
	opts.User = getEnv("CMONDOG_USER", opts.User)
	opts.Password = getEnv("CMONDOG_PASSWORD", opts.Password)
	opts.Color = getEnv("CMONDOG_COLOR", opts.Color)
	opts.Log = getEnvBool("CMONDOG_LOG", opts.Log)
	opts.LogTimestamps = getEnvBool("CMONDOG_LOG_TIMESTAMPS", opts.LogTimestamps)

	if value := os.Getenv("CMONDOG_INTERVAL"); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return WrapError(err, "bad CMONDOG_INTERVAL %q", value)
		}
		opts.Interval = interval
	}

	return nil
}

func (opts *Options) Validate() error {
	if opts.Controller == "" {
		return Errorf("controller address is not set")
	}
	if !strings.HasPrefix(opts.Controller, "http://") && !strings.HasPrefix(opts.Controller, "https://") {
		return Errorf("controller address %q must start with http:// or https://", opts.Controller)
	}

	switch opts.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return Errorf("bad color mode %q, supported values: %s, %s, %s", opts.Color, ColorAuto, ColorAlways, ColorNever)
	}

	if opts.Interval < 0 {
		return Errorf("interval can not be negative (got %s)", opts.Interval)
	}
	if opts.RequestsPerSecond <= 0 {
		return Errorf("requests per second must be positive (got %g)", opts.RequestsPerSecond)
	}
	if opts.Graph.Width < 1 || opts.Graph.Height < 1 {
		return Errorf("graph size must be at least 1x1 (got %dx%d)", opts.Graph.Width, opts.Graph.Height)
	}

	return nil
}

// UseSyntaxHighlight resolves the color mode against whether the output is
// a terminal.
func (opts *Options) UseSyntaxHighlight(isTerminal bool) bool {
	switch opts.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return isTerminal
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
