// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"bucketeer/pkg/spaces"
	"bucketeer/pkg/storage"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	ConfigFileName = "config.yaml"
	ConfigDirName  = "bucketeer"
)

// Credentials and addressing shared by the "spaces" and "aws" providers
type S3Config struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	// Overrides the provider's default endpoint, e.g. for S3-compatible test servers
	Endpoint     string `mapstructure:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type GCPConfig struct {
	Project string `mapstructure:"project"`
}

// Facade behaviour, independent of the backend
type StorageConfig struct {
	DefaultBucket     string        `mapstructure:"default_bucket"`
	OriginURL         string        `mapstructure:"origin_url" validate:"omitempty,url"`
	CacheControl      string        `mapstructure:"cache_control"`
	ACL               string        `mapstructure:"acl" validate:"omitempty,oneof=private public-read public-read-write authenticated-read bucket-owner-read bucket-owner-full-control"`
	PageSize          int           `mapstructure:"page_size" validate:"gte=0,lte=1000"`
	DeleteConcurrency int           `mapstructure:"delete_concurrency" validate:"gte=1,lte=64"`
	ChunkSize         int64         `mapstructure:"chunk_size" validate:"gte=5242880"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}

type Config struct {
	// Provider used when a command does not name one
	Provider string        `mapstructure:"provider" validate:"omitempty,oneof=spaces aws gcp"`
	S3       S3Config      `mapstructure:"s3"`
	GCP      GCPConfig     `mapstructure:"gcp"`
	Storage  StorageConfig `mapstructure:"storage"`
}

// SpacesOptions converts the storage section into the facade's construction options
func (c *Config) SpacesOptions() spaces.Options {
	return spaces.Options{
		DefaultBucket:     c.Storage.DefaultBucket,
		OriginURL:         c.Storage.OriginURL,
		CacheControl:      c.Storage.CacheControl,
		ACL:               c.Storage.ACL,
		PageSize:          c.Storage.PageSize,
		DeleteConcurrency: c.Storage.DeleteConcurrency,
		ChunkSize:         c.Storage.ChunkSize,
	}
}

// Environment variables per key, in precedence order
var envBindings = map[string][]string{
	"provider":                   {"BUCKETEER_PROVIDER"},
	"s3.access_key_id":           {"ACCESS_KEY_ID", "DO_SPACES_KEY_ID"},
	"s3.secret_access_key":       {"SECRET_ACCESS_KEY", "DO_SPACES_SECRET_KEY"},
	"s3.region":                  {"REGION", "DO_SPACES_REGION"},
	"s3.endpoint":                {"BUCKETEER_ENDPOINT"},
	"s3.use_path_style":          {"BUCKETEER_USE_PATH_STYLE"},
	"gcp.project":                {"BUCKETEER_GCP_PROJECT"},
	"storage.default_bucket":     {"DEFAULT_BUCKET_NAME", "DO_SPACES_BUCKET_NAME"},
	"storage.origin_url":         {"ORIGIN_URL"},
	"storage.cache_control":      {"BUCKETEER_CACHE_CONTROL"},
	"storage.acl":                {"BUCKETEER_ACL"},
	"storage.page_size":          {"BUCKETEER_PAGE_SIZE"},
	"storage.delete_concurrency": {"BUCKETEER_DELETE_CONCURRENCY"},
	"storage.chunk_size":         {"BUCKETEER_CHUNK_SIZE"},
	"storage.request_timeout":    {"BUCKETEER_REQUEST_TIMEOUT"},
}

var defaults = map[string]any{
	"provider":                   "spaces",
	"storage.cache_control":      "max-age=86400",
	"storage.delete_concurrency": spaces.DefaultDeleteConcurrency,
	"storage.chunk_size":         spaces.DefaultChunkSize,
	"storage.request_timeout":    "0s",
}

// Keys whose values are masked when listed
var secretKeys = map[string]bool{
	"s3.secret_access_key": true,
}

// ConfigManager loads the layered configuration and edits the config file.
// Precedence, lowest first: defaults, config file, environment.
type ConfigManager struct {
	path     string
	v        *viper.Viper
	validate *validator.Validate
}

// NewConfigManager reads path, or ~/.config/bucketeer/config.yaml when path is empty.
// A missing file is not an error.
func NewConfigManager(path string) (*ConfigManager, error) {
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return nil, err
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
	})

	m := &ConfigManager{
		path:     path,
		validate: validate,
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func defaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", ConfigDirName, ConfigFileName), nil
}

// Path returns the config file location
func (m *ConfigManager) Path() string {
	return m.path
}

func (m *ConfigManager) reload() error {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("error binding environment for %s: %w", key, err)
		}
	}

	v.SetConfigFile(m.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: error reading config file %s: %v", storage.ErrConfiguration, m.path, err)
		}
	}

	m.v = v
	return nil
}

// LoadConfig decodes and validates the merged configuration
func (m *ConfigManager) LoadConfig() (*Config, error) {
	return m.decode(m.v)
}

func (m *ConfigManager) decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		byteSizeHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("%w: error decoding configuration: %v", storage.ErrConfiguration, err)
	}
	if err := m.validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrConfiguration, formatValidationError(err))
	}
	return &cfg, nil
}

// SetValue writes key to the config file after checking the resulting configuration is valid
func (m *ConfigManager) SetValue(key, value string) error {
	key = strings.ToLower(key)
	if _, ok := envBindings[key]; !ok {
		return fmt.Errorf("unknown config key: %s. Valid keys are: %s", key, strings.Join(ValidKeys(), ", "))
	}

	file, err := m.readFile()
	if err != nil {
		return err
	}
	file.Set(key, value)

	candidate := viper.New()
	for k, d := range defaults {
		candidate.SetDefault(k, d)
	}
	if err := candidate.MergeConfigMap(file.AllSettings()); err != nil {
		return fmt.Errorf("error merging configuration: %w", err)
	}
	if _, err := m.decode(candidate); err != nil {
		return err
	}

	return m.writeFile(file.AllSettings())
}

// GetValue returns the effective value of key, including defaults and environment overrides
func (m *ConfigManager) GetValue(key string) (any, bool) {
	key = strings.ToLower(key)
	if !m.v.IsSet(key) {
		return nil, false
	}
	return m.v.Get(key), true
}

// DeleteValue removes key from the config file, reporting whether it was present
func (m *ConfigManager) DeleteValue(key string) (bool, error) {
	key = strings.ToLower(key)
	file, err := m.readFile()
	if err != nil {
		return false, err
	}
	if !file.InConfig(key) {
		return false, nil
	}

	settings := file.AllSettings()
	if !deleteNested(settings, strings.Split(key, ".")) {
		return false, nil
	}
	if err := m.writeFile(settings); err != nil {
		return false, err
	}
	return true, nil
}

// GetAllSettings returns the effective configuration with secrets masked
func (m *ConfigManager) GetAllSettings() map[string]any {
	settings := m.v.AllSettings()
	for key := range secretKeys {
		if s := m.v.GetString(key); s != "" {
			setNested(settings, strings.Split(key, "."), mask(s))
		}
	}
	return settings
}

// ValidKeys lists every key accepted by SetValue
func ValidKeys() []string {
	keys := make([]string, 0, len(envBindings))
	for k := range envBindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// readFile loads only the file layer, so writes never persist environment values
func (m *ConfigManager) readFile() (*viper.Viper, error) {
	file := viper.New()
	file.SetConfigFile(m.path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file %s: %w", m.path, err)
		}
	}
	return file, nil
}

func (m *ConfigManager) writeFile(settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	out := viper.New()
	out.SetConfigType("yaml")
	if err := out.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if err := out.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	if err := os.Chmod(m.path, 0o600); err != nil {
		return fmt.Errorf("error restricting config file permissions: %w", err)
	}
	return m.reload()
}

func deleteNested(m map[string]any, path []string) bool {
	if len(path) == 1 {
		if _, ok := m[path[0]]; !ok {
			return false
		}
		delete(m, path[0])
		return true
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		return false
	}
	deleted := deleteNested(child, path[1:])
	if len(child) == 0 {
		delete(m, path[0])
	}
	return deleted
}

func setNested(m map[string]any, path []string, value any) {
	if len(path) == 1 {
		m[path[0]] = value
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[path[0]] = child
	}
	setNested(child, path[1:], value)
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// byteSizeHookFunc decodes sizes such as "8MiB", "5MB" or "1048576" into integer fields
func byteSizeHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Int64 || to == reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return ParseByteSize(data.(string))
	}
}

var byteUnits = map[string]int64{
	"":    1,
	"b":   1,
	"kb":  1000,
	"mb":  1000 * 1000,
	"gb":  1000 * 1000 * 1000,
	"kib": 1 << 10,
	"mib": 1 << 20,
	"gib": 1 << 30,
}

// ParseByteSize parses a decimal number with an optional SI or IEC unit suffix
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if i == -1 {
		i = len(s)
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	unit, ok := byteUnits[strings.ToLower(strings.TrimSpace(s[i:]))]
	if !ok {
		return 0, fmt.Errorf("invalid byte size unit in %q", s)
	}
	if n > math.MaxInt64/unit {
		return 0, fmt.Errorf("byte size %q overflows int64", s)
	}
	return n * unit, nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
