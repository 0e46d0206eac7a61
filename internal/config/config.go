package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL     = "http://127.0.0.1:7433"
	DefaultDBFileName = ".ugcmigrate.db"
	DefaultLogLevel   = "info"

	DefaultStorageBackend = "local_cas"
	DefaultBlobDirName    = ".ugcmigrate-blobs"
	DefaultFetchUserAgent = "ugcmigrate"
	DefaultGCBatchSize    = 500

	DefaultMaxUploadBytes  int64 = 32 * 1024 * 1024
	DefaultMultipartMemory int64 = 8 * 1024 * 1024

	configFileName           = ".ugcmigrate.toml"
	configDirEnvKey          = "UGCMIGRATE_CONFIG_DIR"
	trustProjectConfigEnvKey = "UGCMIGRATE_TRUST_PROJECT_CONFIG"
	apiURLEnvKey             = "UGCMIGRATE_API_URL"
	dbPathEnvKey             = "UGCMIGRATE_DB"
	adminTokenHashEnvKey     = "UGCMIGRATE_ADMIN_TOKEN_HASH"
)

var validStorageBackends = map[string]struct{}{
	"local_cas": {},
	"s3":        {},
}

// StorageConfig selects where imported asset bytes are kept.
type StorageConfig struct {
	Backend  string `toml:"backend"`
	BlobRoot string `toml:"blob_root"`
	S3Region string `toml:"s3_region"`
	S3Bucket string `toml:"s3_bucket"`
}

// FetchConfig tunes outbound asset downloads.
type FetchConfig struct {
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// ScoresConfig bounds score import uploads.
type ScoresConfig struct {
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`
}

// Config defines runtime configuration for ugcmigrate.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	AdminTokenHash           string        `toml:"admin_token_hash"`
	GCBatchSize              int           `toml:"gc_batch_size"`
	Storage                  StorageConfig `toml:"storage"`
	Fetch                    FetchConfig   `toml:"fetch"`
	Scores                   ScoresConfig  `toml:"scores"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		DBPath:      "",
		LogLevel:    DefaultLogLevel,
		GCBatchSize: DefaultGCBatchSize,
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
		},
		Fetch: FetchConfig{
			UserAgent: DefaultFetchUserAgent,
		},
		Scores: ScoresConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMemory,
		},
	}
}

// FetchTimeout parses fetch.timeout. Empty or zero means no timeout.
func (c *Config) FetchTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.Fetch.Timeout)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid fetch.timeout %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("fetch.timeout must not be negative")
	}
	return d, nil
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"admin_token_hash",
	"gc_batch_size",
	"storage.backend",
	"storage.blob_root",
	"storage.s3_region",
	"storage.s3_bucket",
	"fetch.timeout",
	"fetch.user_agent",
	"scores.max_upload_bytes",
	"scores.multipart_max_memory",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "admin_token_hash":
		return c.AdminTokenHash, nil
	case "gc_batch_size":
		return strconv.Itoa(c.GCBatchSize), nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.blob_root":
		return c.Storage.BlobRoot, nil
	case "storage.s3_region":
		return c.Storage.S3Region, nil
	case "storage.s3_bucket":
		return c.Storage.S3Bucket, nil
	case "fetch.timeout":
		return c.Fetch.Timeout, nil
	case "fetch.user_agent":
		return c.Fetch.UserAgent, nil
	case "scores.max_upload_bytes":
		return strconv.FormatInt(c.Scores.MaxUploadBytes, 10), nil
	case "scores.multipart_max_memory":
		return strconv.FormatInt(c.Scores.MultipartMaxMemory, 10), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if hash := strings.TrimSpace(os.Getenv(adminTokenHashEnvKey)); hash != "" {
		cfg.AdminTokenHash = hash
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

// BlobRoot returns storage.blob_root, defaulting to a directory next to the database.
func (c *Config) BlobRoot() string {
	if root := strings.TrimSpace(c.Storage.BlobRoot); root != "" {
		return root
	}
	return filepath.Join(filepath.Dir(c.DBPath), DefaultBlobDirName)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "gc_batch_size":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "scores.max_upload_bytes", "scores.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "storage.backend":
		normalized := strings.ToLower(value)
		if _, ok := validStorageBackends[normalized]; !ok {
			return nil, fmt.Errorf("%s must be local_cas or s3", key)
		}
		return normalized, nil
	case "fetch.timeout":
		if value != "" && value != "0" {
			d, err := time.ParseDuration(value)
			if err != nil || d < 0 {
				return nil, fmt.Errorf("%s must be a duration such as 30s", key)
			}
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.GCBatchSize <= 0 {
		c.GCBatchSize = DefaultGCBatchSize
	}
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	if c.Scores.MaxUploadBytes <= 0 {
		c.Scores.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Scores.MultipartMaxMemory <= 0 {
		c.Scores.MultipartMaxMemory = DefaultMultipartMemory
	}
}
