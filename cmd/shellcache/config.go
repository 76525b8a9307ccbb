package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Address the gateway listens on for intercepted page traffic.
	Listen string `yaml:"listen" env:"SHELLCACHE_LISTEN"`
	// Address of the out-of-band admin listener. Empty disables it.
	Admin string `yaml:"admin" env:"SHELLCACHE_ADMIN"`
	// URL of the origin server.
	Origin string `yaml:"origin" env:"SHELLCACHE_ORIGIN"`
	// App-shell paths precached at install time.
	Precache []string    `yaml:"precache" env:"SHELLCACHE_PRECACHE" envSeparator:","`
	Cache    CacheConfig `yaml:"cache"`
}

type CacheConfig struct {
	// Name and Version form the active generation name "<name>-<version>".
	Name    string `yaml:"name" env:"SHELLCACHE_CACHE_NAME"`
	Version string `yaml:"version" env:"SHELLCACHE_CACHE_VERSION"`
	// Backend is one of sqlite, leveldb, memory.
	Backend string `yaml:"backend" env:"SHELLCACHE_CACHE_BACKEND"`
	// Path is the sqlite db file or leveldb directory.
	Path string `yaml:"path" env:"SHELLCACHE_CACHE_PATH"`
}

func defaultConfig() Config {
	return Config{
		Listen:   ":8080",
		Precache: []string{"/"},
		Cache: CacheConfig{
			Name:    "spedbusmd",
			Version: "v1",
			Backend: "sqlite",
			Path:    "cache.db",
		},
	}
}

// loadConfig reads the optional yaml config file and applies environment
// overrides on top, the environment winning over the file.
func loadConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename != "" {
		configBytes, err := os.ReadFile(filename)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(configBytes, &config); err != nil {
			return config, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse environment: %w", err)
	}
	return config, config.validate()
}

func (c Config) validate() error {
	if c.Origin == "" {
		return fmt.Errorf("origin is required")
	}
	if _, err := url.Parse(c.Origin); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	switch c.Cache.Backend {
	case "sqlite", "leveldb", "memory":
	default:
		return fmt.Errorf("cache.backend must be sqlite, leveldb or memory, got %q", c.Cache.Backend)
	}
	if c.Cache.Name == "" || c.Cache.Version == "" {
		return fmt.Errorf("cache.name and cache.version are required")
	}
	return nil
}
