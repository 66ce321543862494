// Package config loads the settings shared by the formbuilder command and
// server. Values are layered: built-in defaults, then an optional YAML file,
// then a .env file, then FORMBUILDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMBUILDER_"

// Backend names a kv medium implementation.
type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendFile      Backend = "file"
	BackendRedis     Backend = "redis"
	BackendSQLite    Backend = "sqlite"
	BackendPostgres  Backend = "postgres"
	BackendFirestore Backend = "firestore"
)

// Config is the full settings tree.
type Config struct {
	Store      Store      `yaml:"store"`
	Autosave   Autosave   `yaml:"autosave"`
	Validation Validation `yaml:"validation"`
	Log        Log        `yaml:"log"`
	Server     Server     `yaml:"server"`
	Render     Render     `yaml:"render"`
}

type Store struct {
	Backend   Backend `yaml:"backend"`
	Namespace string  `yaml:"namespace"`
	// Path is the file for the file backend and the database for sqlite.
	Path                string `yaml:"path"`
	RedisAddr           string `yaml:"redisAddr"`
	RedisPassword       string `yaml:"redisPassword"`
	RedisDB             int    `yaml:"redisDB"`
	PostgresDSN         string `yaml:"postgresDSN"`
	FirestoreProject    string `yaml:"firestoreProject"`
	FirestoreCollection string `yaml:"firestoreCollection"`
}

type Autosave struct {
	Delay time.Duration `yaml:"delay"`
}

type Validation struct {
	Locale string `yaml:"locale"`
	// Messages is an optional YAML catalog overriding built-in messages.
	Messages string `yaml:"messages"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Server struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwtSecret"`
}

type Render struct {
	// Templates is a directory whose templates override the embedded ones.
	Templates string `yaml:"templates"`
	// InlineStyles embeds the base stylesheet in rendered HTML.
	InlineStyles bool `yaml:"inlineStyles"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Store: Store{
			Backend:             BackendFile,
			Path:                "formbuilder.json",
			RedisAddr:           "localhost:6379",
			FirestoreCollection: "formbuilder",
		},
		Autosave:   Autosave{Delay: 800 * time.Millisecond},
		Validation: Validation{Locale: "en"},
		Log:        Log{Level: "info", Format: "text"},
		Server:     Server{Addr: ":8080"},
	}
}

// LoadOption configures Load.
type LoadOption func(*loader)

type loader struct {
	file     string
	envFiles []string
	lookup   func(string) (string, bool)
}

// WithFile reads a YAML file. A missing file is an error.
func WithFile(path string) LoadOption {
	return func(l *loader) {
		l.file = path
	}
}

// WithEnvFiles reads dotenv files. Missing files are skipped.
func WithEnvFiles(paths ...string) LoadOption {
	return func(l *loader) {
		l.envFiles = append(l.envFiles, paths...)
	}
}

// WithLookup replaces os.LookupEnv.
func WithLookup(fn func(string) (string, bool)) LoadOption {
	return func(l *loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

// Load builds a Config. Process environment variables win over values read
// from dotenv files.
func Load(opts ...LoadOption) (Config, error) {
	l := &loader{lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	cfg := Default()
	if l.file != "" {
		data, err := os.ReadFile(l.file)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.file, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", l.file, err)
		}
	}

	dotenv := map[string]string{}
	for _, path := range l.envFiles {
		values, err := godotenv.Read(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		for k, v := range values {
			dotenv[k] = v
		}
	}
	get := func(key string) (string, bool) {
		if v, ok := l.lookup(EnvPrefix + key); ok {
			return strings.TrimSpace(v), true
		}
		v, ok := dotenv[EnvPrefix+key]
		return strings.TrimSpace(v), ok
	}

	if err := applyEnv(&cfg, get); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, get func(string) (string, bool)) error {
	strs := map[string]*string{
		"STORE_NAMESPACE":      &cfg.Store.Namespace,
		"STORE_PATH":           &cfg.Store.Path,
		"REDIS_ADDR":           &cfg.Store.RedisAddr,
		"REDIS_PASSWORD":       &cfg.Store.RedisPassword,
		"POSTGRES_DSN":         &cfg.Store.PostgresDSN,
		"FIRESTORE_PROJECT":    &cfg.Store.FirestoreProject,
		"FIRESTORE_COLLECTION": &cfg.Store.FirestoreCollection,
		"LOCALE":               &cfg.Validation.Locale,
		"MESSAGES":             &cfg.Validation.Messages,
		"LOG_LEVEL":            &cfg.Log.Level,
		"LOG_FORMAT":           &cfg.Log.Format,
		"SERVER_ADDR":          &cfg.Server.Addr,
		"JWT_SECRET":           &cfg.Server.JWTSecret,
		"RENDER_TEMPLATES":     &cfg.Render.Templates,
	}
	for key, dst := range strs {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	if v, ok := get("STORE_BACKEND"); ok {
		cfg.Store.Backend = Backend(strings.ToLower(v))
	}
	if v, ok := get("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %sREDIS_DB: %w", EnvPrefix, err)
		}
		cfg.Store.RedisDB = db
	}
	if v, ok := get("RENDER_INLINE_STYLES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid %sRENDER_INLINE_STYLES: %w", EnvPrefix, err)
		}
		cfg.Render.InlineStyles = b
	}
	if v, ok := get("AUTOSAVE_DELAY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid %sAUTOSAVE_DELAY: %w", EnvPrefix, err)
		}
		cfg.Autosave.Delay = d
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the %s backend", c.Store.Backend))
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redisAddr is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, errors.New("store.postgresDSN is required for the postgres backend"))
		}
	case BackendFirestore:
		if c.Store.FirestoreProject == "" {
			errs = append(errs, errors.New("store.firestoreProject is required for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Autosave.Delay < 0 {
		errs = append(errs, errors.New("autosave.delay must not be negative"))
	}
	if c.Validation.Locale == "" {
		errs = append(errs, errors.New("validation.locale is required"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
