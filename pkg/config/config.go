package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Store    StoreConfig
	DB       DBConfig
	Redis    RedisConfig
	Business BusinessConfig
	Courier  CourierConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Driver == StoreDriverSQL {
		if err := cfg.DB.validate(); err != nil {
			return nil, err
		}
	}
	if _, err := cfg.Business.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"IMIQ_APP_ENV" required:"true"`
	Port         string `envconfig:"IMIQ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"IMIQ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IMIQ_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"IMIQ_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the row store backend.
type StoreConfig struct {
	Driver    string        `envconfig:"IMIQ_STORE_DRIVER" default:"excel"`
	ExcelPath string        `envconfig:"IMIQ_STORE_EXCEL_PATH" default:"CZ_MasterSheet.xlsx"`
	CacheTTL  time.Duration `envconfig:"IMIQ_STORE_CACHE_TTL" default:"5m"`
}

func (s *StoreConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StoreDriverExcel:
		if strings.TrimSpace(s.ExcelPath) == "" {
			return fmt.Errorf("%s is required for the excel store", EnvStoreExcelPath)
		}
	case StoreDriverSQL, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported %s %q", EnvStoreDriver, s.Driver)
	}
	return nil
}

type DBConfig struct {
	Driver string `envconfig:"IMIQ_DB_DRIVER" default:"postgres"`
	DSN    string `envconfig:"IMIQ_DB_DSN"`

	MaxOpenConns    int           `envconfig:"IMIQ_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"IMIQ_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"IMIQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IMIQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) validate() error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	if db.Driver != DBDriverPostgres && db.Driver != DBDriverSQLite {
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvStoreDriver, StoreDriverSQL)
	}
	return nil
}

// RedisConfig is optional; an empty URL and address disables table caching.
type RedisConfig struct {
	URL          string        `envconfig:"IMIQ_REDIS_URL"`
	Address      string        `envconfig:"IMIQ_REDIS_ADDR"`
	Password     string        `envconfig:"IMIQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"IMIQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IMIQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IMIQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IMIQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IMIQ_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"IMIQ_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// CacheEnabled reports whether table reads go through redis. A zero
// IMIQ_STORE_CACHE_TTL turns the cache off even when redis is configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Enabled() && c.Store.CacheTTL > 0
}

// BusinessConfig holds the knobs the order and KPI services read.
type BusinessConfig struct {
	Timezone          string `envconfig:"IMIQ_TIMEZONE" default:"Asia/Kolkata"`
	ShipSLADays       int    `envconfig:"IMIQ_SLA_DAYS" default:"3"`
	LeaderboardTopN   int    `envconfig:"IMIQ_LEADERBOARD_TOP_N" default:"10"`
	DefaultOrderOwner string `envconfig:"IMIQ_DEFAULT_ORDER_OWNER" default:"system"`
}

// Location resolves the configured business timezone. Hosts without tzdata fall
// back to the fixed +05:30 offset when the default zone is requested.
func (b BusinessConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(b.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if name == DefaultTimezone {
		return time.FixedZone("IST", 5*60*60+30*60), nil
	}
	return nil, fmt.Errorf("loading %s %q: %w", EnvTimezone, name, err)
}

// CourierConfig carries the sender block used by courier payload builders.
type CourierConfig struct {
	SenderName    string `envconfig:"IMIQ_COURIER_SENDER_NAME" default:"IMIQ Warehouse"`
	SenderAddress string `envconfig:"IMIQ_COURIER_SENDER_ADDRESS" default:"Warehouse Address Line 1"`
	SenderCity    string `envconfig:"IMIQ_COURIER_SENDER_CITY" default:"City"`
	SenderState   string `envconfig:"IMIQ_COURIER_SENDER_STATE" default:"State"`
	SenderPincode string `envconfig:"IMIQ_COURIER_SENDER_PINCODE" default:"123456"`
	SenderPhone   string `envconfig:"IMIQ_COURIER_SENDER_PHONE" default:"1234567890"`
}
