package config

import (
	"fmt"
	"time"
)

// WorkDir is the per-user directory holding the config file, logs and the
// sqlite database.
const WorkDir = ".indexproxy"

// DirConf resolves WorkDir against the running user's home directory.
type DirConf struct {
	HomeDir string
	WorkDir string
}

// OriginConfig describes one upstream to fetch from: a torrent-listing
// aggregator reachable over HTTP, speaking either the XML feed or the
// rendered HTML pages.
type OriginConfig struct {
	ID             string        `mapstructure:"id"`
	Name           string        `mapstructure:"name"`
	URL            string        `mapstructure:"url"`
	UserAgent      string        `mapstructure:"user_agent"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	LocalAddress   string        `mapstructure:"local_address"`
	Interface      string        `mapstructure:"interface"`

	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`

	CacheDir    string        `mapstructure:"cache_dir"`
	CacheSize   uint64        `mapstructure:"cache_size"`
	ListTTL     time.Duration `mapstructure:"list_ttl"`
	ViewTTL     time.Duration `mapstructure:"view_ttl"`
	DownloadTTL time.Duration `mapstructure:"download_ttl"`

	UpdateInterval time.Duration `mapstructure:"update_interval"`
	SeedQuery      SeedQuery     `mapstructure:"seed_query"`
}

// SeedQuery is the query the periodic ingester polls the origin with.
type SeedQuery struct {
	Term     string `mapstructure:"term"`
	Category string `mapstructure:"category"`
}

// Config is the top-level, viper-bound configuration struct: one indexer
// origin plus any number of mirror origins.
type Config struct {
	Indexer OriginConfig   `mapstructure:"indexer"`
	Mirrors []OriginConfig `mapstructure:"mirrors"`
	Zap     Zap            `mapstructure:"zap"`
}

// defaults applied to any origin that leaves a zero-value field.
const (
	DefaultListTTL        = 60 * time.Second
	DefaultViewTTL        = 10 * time.Minute
	DefaultDownloadTTL    = 10 * time.Minute
	DefaultUpdateInterval = 5 * time.Minute
	DefaultMaxRetries     = 2
	DefaultMinInterval    = 1 * time.Second
	DefaultTimeout        = 15 * time.Second
	DefaultConnectTimeout = 5 * time.Second
)

// ApplyDefaults fills zero-valued durations/counters with their documented
// defaults. Called once per origin after viper unmarshals the config, so
// a config file only needs to override what it cares about.
func (o *OriginConfig) ApplyDefaults() {
	if o.ListTTL == 0 {
		o.ListTTL = DefaultListTTL
	}
	if o.ViewTTL == 0 {
		o.ViewTTL = DefaultViewTTL
	}
	if o.DownloadTTL == 0 {
		o.DownloadTTL = DefaultDownloadTTL
	}
	if o.UpdateInterval == 0 {
		o.UpdateInterval = DefaultUpdateInterval
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.MinInterval == 0 {
		o.MinInterval = DefaultMinInterval
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.RateLimitRequests == 0 {
		o.RateLimitRequests = 10
	}
	if o.RateLimitWindow == 0 {
		o.RateLimitWindow = time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "indexproxy/1.0"
	}
}

// Validate checks the fields the core cannot run without: a URL, and that
// local_address/interface aren't both set (address wins, but a config
// asking for both is almost certainly a mistake worth surfacing).
func (o *OriginConfig) Validate() error {
	if o.URL == "" {
		return fmt.Errorf("origin %q: url is required", o.ID)
	}
	if o.LocalAddress != "" && o.Interface != "" {
		return fmt.Errorf("origin %q: local_address and interface are mutually exclusive; local_address wins", o.ID)
	}
	return nil
}

// ValidateMirrors ensures every configured mirror origin has a unique,
// non-empty id: the mirror façade keys everything (coordinators, ledgers,
// health) by this id.
func (c *Config) ValidateMirrors() error {
	seen := make(map[string]struct{}, len(c.Mirrors))
	for i := range c.Mirrors {
		m := &c.Mirrors[i]
		m.ApplyDefaults()
		if err := m.Validate(); err != nil {
			return err
		}
		if m.ID == "" {
			return fmt.Errorf("mirror at index %d: id is required", i)
		}
		if _, ok := seen[m.ID]; ok {
			return fmt.Errorf("mirror id %q is duplicated", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}
