package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"axiapac.com/attendance/infrastructure/devops"
	"axiapac.com/attendance/utils"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile   = "ATTENDANCE_CONFIG"
	EnvSSMParameter = "ATTENDANCE_SSM_PARAMETER"
	DefaultFile     = "attendance.yaml"
)

const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
	// DialectWorkbook keeps events and summaries only in the xlsx workbook.
	DialectWorkbook = "workbook"
)

type Config struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
	// Timezone used to turn Slack timestamps into date and time.
	Timezone string `yaml:"timezone"`

	Database DatabaseConfig `yaml:"database"`
	Slack    SlackConfig    `yaml:"slack"`
	API      APIConfig      `yaml:"api"`
	Workbook WorkbookConfig `yaml:"workbook"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

type DatabaseConfig struct {
	Dialect        string `yaml:"dialect"`
	DSN            string `yaml:"dsn"`
	MaxConnections int    `yaml:"maxConnections"`
	LogLevel       string `yaml:"logLevel"`
}

type SlackConfig struct {
	SigningSecret string `yaml:"signingSecret"`
	BotToken      string `yaml:"botToken"`
	InfoChannel   string `yaml:"infoChannel"`
	ErrorChannel  string `yaml:"errorChannel"`
	Reaction      string `yaml:"reaction"`
}

type APIConfig struct {
	// SigningSecret is base64 encoded.
	SigningSecret string        `yaml:"signingSecret"`
	TokenTTL      time.Duration `yaml:"tokenTTL"`
}

type WorkbookConfig struct {
	// Path of the xlsx mirror of summaries and events. Empty disables it.
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type IngestConfig struct {
	DedupCapacity    int           `yaml:"dedupCapacity"`
	AckTimeout       time.Duration `yaml:"ackTimeout"`
	RecomputeTimeout time.Duration `yaml:"recomputeTimeout"`
}

// YAMLSource is satisfied by *devops.ParameterStore.
type YAMLSource interface {
	LoadYAML(ctx context.Context, name string, out interface{}) error
}

func Default() *Config {
	return &Config{
		Addr:      "0.0.0.0:8090",
		LogLevel:  "info",
		LogFormat: "text",
		Timezone:  "Australia/Brisbane",
		Database: DatabaseConfig{
			Dialect:        DialectSQLite,
			DSN:            "attendance.db",
			MaxConnections: 10,
			LogLevel:       "error",
		},
		API: APIConfig{TokenTTL: 24 * time.Hour},
		Ingest: IngestConfig{
			DedupCapacity:    10000,
			AckTimeout:       2 * time.Second,
			RecomputeTimeout: 30 * time.Second,
		},
	}
}

// Load layers defaults, the YAML file, the SSM parameter and environment
// variables, in that order.
func Load(ctx context.Context) (*Config, error) {
	var params YAMLSource
	if os.Getenv(EnvSSMParameter) != "" {
		store, err := devops.ConnectParameterStore(ctx)
		if err != nil {
			return nil, err
		}
		params = store
	}
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		path = DefaultFile
	}
	return LoadFrom(ctx, path, params, os.Getenv)
}

func LoadFrom(ctx context.Context, path string, params YAMLSource, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if name := getenv(EnvSSMParameter); name != "" && params != nil {
		if err := params.LoadYAML(ctx, name, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"ADDR":                      &c.Addr,
		"LOG_LEVEL":                 &c.LogLevel,
		"LOG_FORMAT":                &c.LogFormat,
		"DSN":                       &c.Database.DSN,
		"DB_DIALECT":                &c.Database.Dialect,
		"SLACK_SIGNING_SECRET":      &c.Slack.SigningSecret,
		"SLACK_BOT_TOKEN":           &c.Slack.BotToken,
		"SLACK_INFO_CHANNEL":        &c.Slack.InfoChannel,
		"SLACK_ERROR_CHANNEL":       &c.Slack.ErrorChannel,
		"ATTENDANCE_SIGNING_SECRET": &c.API.SigningSecret,
		"ATTENDANCE_TIMEZONE":       &c.Timezone,
		"ATTENDANCE_WORKBOOK":       &c.Workbook.Path,
		"ATTENDANCE_BUCKET":         &c.Workbook.Bucket,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("ATTENDANCE_DEDUP_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ATTENDANCE_DEDUP_CAPACITY: %w", err)
		}
		c.Ingest.DedupCapacity = n
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Dialect {
	case DialectSQLite, DialectMySQL:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required"))
		}
	case DialectWorkbook:
		if c.Workbook.Path == "" {
			errs = append(errs, errors.New("workbook.path is required for the workbook dialect"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.dialect must be sqlite, mysql or workbook, got %q", c.Database.Dialect))
	}
	if c.Ingest.DedupCapacity <= 0 {
		errs = append(errs, errors.New("ingest.dedupCapacity must be positive"))
	}
	if c.Ingest.AckTimeout <= 0 || c.Ingest.RecomputeTimeout <= 0 {
		errs = append(errs, errors.New("ingest timeouts must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Location() *time.Location {
	return utils.LoadLocation(c.Timezone)
}
