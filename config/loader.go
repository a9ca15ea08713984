package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGeocoderURL    = "https://nominatim.openstreetmap.org"
	DefaultRouterURL      = "https://signal.eu.org/osm/eu/route/v1/train"
	DefaultUserAgent      = "railtrips/1.0"
	DefaultMinIntervalMS  = 1000
	DefaultGeocodeTimeout = 10000
	DefaultRouteTimeout   = 60000
	DefaultMaxFailures    = 5
	DefaultGeocodingPath  = "geocoding_cache.json"
	DefaultRoutesPath     = "trip_cache.json"
	DefaultGeocodingKey   = "railtrips:geocoding"
	DefaultRoutesKey      = "railtrips:routes"
)

// candidatePaths are tried in order when no explicit path is given.
var candidatePaths = []string{"config.yml", "./config/config.yml"}

// LoadAppConfig loads and validates the application configuration. An empty
// path searches the default locations; if none exists the defaults are used.
func LoadAppConfig(path string) (AppConfig, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		for _, p := range candidatePaths {
			data, err = os.ReadFile(p)
			if err == nil {
				break
			}
		}
		if err != nil {
			data = nil
		}
	}
	return Parse(data)
}

// Parse decodes, validates and completes a YAML document.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config: %w", err)
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	g := &cfg.Geocoder
	if g.BaseURL == "" {
		g.BaseURL = DefaultGeocoderURL
	}
	if g.UserAgent == "" {
		g.UserAgent = DefaultUserAgent
	}
	if g.MinIntervalMS == 0 {
		g.MinIntervalMS = DefaultMinIntervalMS
	}
	if g.TimeoutMS == 0 {
		g.TimeoutMS = DefaultGeocodeTimeout
	}

	r := &cfg.Router
	if r.BaseURL == "" {
		r.BaseURL = DefaultRouterURL
	}
	if r.UserAgent == "" {
		r.UserAgent = DefaultUserAgent
	}
	if r.MinIntervalMS == 0 {
		r.MinIntervalMS = DefaultMinIntervalMS
	}
	if r.TimeoutMS == 0 {
		r.TimeoutMS = DefaultRouteTimeout
	}
	if r.MaxConsecutiveFailures == 0 {
		r.MaxConsecutiveFailures = DefaultMaxFailures
	}

	c := &cfg.Cache
	if c.Backend == "" {
		c.Backend = "file"
	}
	if c.GeocodingPath == "" {
		c.GeocodingPath = DefaultGeocodingPath
	}
	if c.RoutesPath == "" {
		c.RoutesPath = DefaultRoutesPath
	}
	if c.GeocodingKey == "" {
		c.GeocodingKey = DefaultGeocodingKey
	}
	if c.RoutesKey == "" {
		c.RoutesKey = DefaultRoutesKey
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
