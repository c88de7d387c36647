package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/store"
)

const (
	defaultEnv                = "dev"
	defaultDBPath             = "./dev.db"
	defaultPort               = "8080"
	defaultStoreDriver        = string(store.DriverSQLite)
	defaultLogLevel           = "info"
	defaultAutosaveDelay      = 2 * time.Second
	defaultSearchDebounce     = 300 * time.Millisecond
	defaultSearchMinChars     = 2
	defaultSearchMaxResults   = 10
	defaultS3Region           = "us-east-1"
	defaultRedisAddress       = "localhost:6379"
	autosaveKey               = "auto_save_estimate"
	defaultContingencyPercent = estimate.DefaultContingencyPercent
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env         string `validate:"oneof=dev prod"`
	Port        string `validate:"required,numeric"`
	DBPath      string `validate:"required"`
	StoreDriver string `validate:"oneof=sqlite postgres s3 redis memory"`
	PostgresDSN string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	RedisAddr   string
	CatalogPath string
	LogLevel    string `validate:"oneof=trace debug info warn warning error fatal panic"`

	DefaultContingencyPercent float64       `validate:"gte=0,lte=100"`
	AutosaveDelay             time.Duration `validate:"gte=0"`
	AutosaveKey               string        `validate:"required"`
	SearchDebounce            time.Duration `validate:"gte=0"`
	SearchMinChars            int           `validate:"gte=0"`
	SearchMaxResults          int           `validate:"gte=0"`
	MaxLocations              int           `validate:"gte=0"`
	MaxActionsPerLocation     int           `validate:"gte=0"`
}

// IsDev reports whether the app runs in the dev environment.
func (c Config) IsDev() bool { return c.Env == "dev" }

// Addr is the HTTP listen address.
func (c Config) Addr() string { return ":" + c.Port }

// StoreOptions selects the snapshot store.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:      store.Driver(c.StoreDriver),
		SQLitePath:  c.DBPath,
		PostgresDSN: c.PostgresDSN,
		S3: store.S3Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			PathStyle: c.S3PathStyle,
		},
		RedisAddr: c.RedisAddr,
	}
}

// EstimateDefaults seeds new estimates.
func (c Config) EstimateDefaults() estimate.Defaults {
	return estimate.Defaults{
		ContingencyPercent:    c.DefaultContingencyPercent,
		MaxLocations:          c.MaxLocations,
		MaxActionsPerLocation: c.MaxActionsPerLocation,
	}
}

// Default is the configuration with nothing set.
func Default() Config {
	return Config{
		Env:                       defaultEnv,
		Port:                      defaultPort,
		DBPath:                    defaultDBPath,
		StoreDriver:               defaultStoreDriver,
		S3Region:                  defaultS3Region,
		RedisAddr:                 defaultRedisAddress,
		LogLevel:                  defaultLogLevel,
		DefaultContingencyPercent: defaultContingencyPercent,
		AutosaveDelay:             defaultAutosaveDelay,
		AutosaveKey:               autosaveKey,
		SearchDebounce:            defaultSearchDebounce,
		SearchMinChars:            defaultSearchMinChars,
		SearchMaxResults:          defaultSearchMaxResults,
		MaxLocations:              estimate.DefaultMaxLocations,
		MaxActionsPerLocation:     estimate.DefaultMaxActionsPerLocation,
	}
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	if _, err := loadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("could not read .env")
	}
	return fromEnv(os.LookupEnv)
}

type lookupFunc func(string) (string, bool)

func fromEnv(lookup lookupFunc) Config {
	cfg := Default()
	r := reader{lookup: lookup}

	r.str("APP_ENV", &cfg.Env)
	r.str("PORT", &cfg.Port)
	r.str("DB_PATH", &cfg.DBPath)
	r.str("STORE_DRIVER", &cfg.StoreDriver)
	r.str("POSTGRES_DSN", &cfg.PostgresDSN)
	r.str("S3_BUCKET", &cfg.S3Bucket)
	r.str("S3_REGION", &cfg.S3Region)
	r.str("S3_ENDPOINT", &cfg.S3Endpoint)
	r.boolean("S3_PATH_STYLE", &cfg.S3PathStyle)
	r.str("REDIS_ADDRESS", &cfg.RedisAddr)
	r.str("CATALOG_PATH", &cfg.CatalogPath)
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.float("DEFAULT_CONTINGENCY_PERCENT", &cfg.DefaultContingencyPercent)
	r.duration("AUTOSAVE_DELAY", &cfg.AutosaveDelay)
	r.duration("SEARCH_DEBOUNCE", &cfg.SearchDebounce)
	r.integer("SEARCH_MIN_CHARS", &cfg.SearchMinChars)
	r.integer("SEARCH_MAX_RESULTS", &cfg.SearchMaxResults)
	r.integer("MAX_LOCATIONS", &cfg.MaxLocations)
	r.integer("MAX_ACTIONS_PER_LOCATION", &cfg.MaxActionsPerLocation)

	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Env = strings.ToLower(cfg.Env)

	sanitize(&cfg)
	warnMissing(cfg)
	return cfg
}

var validate = validator.New()

// sanitize resets every field that fails validation to its default.
func sanitize(cfg *Config) {
	err := validate.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	def := Default()
	for _, fe := range verrs {
		logrus.WithFields(logrus.Fields{"field": fe.Field(), "rule": fe.Tag(), "value": fe.Value()}).
			Warn("invalid configuration value, using default")
		switch fe.Field() {
		case "Env":
			cfg.Env = def.Env
		case "Port":
			cfg.Port = def.Port
		case "DBPath":
			cfg.DBPath = def.DBPath
		case "StoreDriver":
			cfg.StoreDriver = def.StoreDriver
		case "LogLevel":
			cfg.LogLevel = def.LogLevel
		case "DefaultContingencyPercent":
			cfg.DefaultContingencyPercent = def.DefaultContingencyPercent
		case "AutosaveDelay":
			cfg.AutosaveDelay = def.AutosaveDelay
		case "AutosaveKey":
			cfg.AutosaveKey = def.AutosaveKey
		case "SearchDebounce":
			cfg.SearchDebounce = def.SearchDebounce
		case "SearchMinChars":
			cfg.SearchMinChars = def.SearchMinChars
		case "SearchMaxResults":
			cfg.SearchMaxResults = def.SearchMaxResults
		case "MaxLocations":
			cfg.MaxLocations = def.MaxLocations
		case "MaxActionsPerLocation":
			cfg.MaxActionsPerLocation = def.MaxActionsPerLocation
		}
	}
}

func warnMissing(cfg Config) {
	switch store.Driver(cfg.StoreDriver) {
	case store.DriverPostgres:
		if cfg.PostgresDSN == "" {
			logrus.Warn("warning: POSTGRES_DSN is not set")
		}
	case store.DriverS3:
		if cfg.S3Bucket == "" {
			logrus.Warn("warning: S3_BUCKET is not set")
		}
	}
}

type reader struct {
	lookup lookupFunc
}

func (r reader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r reader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r reader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = b
}

func (r reader) integer(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = n
}

func (r reader) float(key string, dst *float64) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = f
}

func (r reader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.warn(key, v, err)
		return
	}
	*dst = d
}

func (r reader) warn(key, value string, err error) {
	logrus.WithFields(logrus.Fields{"key": key, "value": value}).WithError(err).
		Warn("could not parse configuration value, using default")
}
