package config

import "time"

// GeocoderConfig contains geocoding service configuration
type GeocoderConfig struct {
	BaseURL       string `yaml:"baseURL" validate:"omitempty,url"`
	UserAgent     string `yaml:"userAgent"`
	Email         string `yaml:"email" validate:"omitempty,email"`
	CountryCodes  string `yaml:"countryCodes"`
	MinIntervalMS int    `yaml:"minIntervalMS" validate:"omitempty,gte=1000"`
	TimeoutMS     int    `yaml:"timeoutMS" validate:"gte=0"`
}

// RouterConfig contains rail routing service configuration
type RouterConfig struct {
	BaseURL                string `yaml:"baseURL" validate:"omitempty,url"`
	UserAgent              string `yaml:"userAgent"`
	MinIntervalMS          int    `yaml:"minIntervalMS" validate:"omitempty,gte=1000"`
	TimeoutMS              int    `yaml:"timeoutMS" validate:"gte=0"`
	MaxConsecutiveFailures int    `yaml:"maxConsecutiveFailures" validate:"gte=0"`
}

// CacheConfig selects the persisted cache backend
type CacheConfig struct {
	Backend       string `yaml:"backend" validate:"omitempty,oneof=file redis memory"`
	GeocodingPath string `yaml:"geocodingPath"`
	RoutesPath    string `yaml:"routesPath"`
	RedisURL      string `yaml:"redisURL" validate:"required_if=Backend redis"`
	GeocodingKey  string `yaml:"geocodingKey"`
	RoutesKey     string `yaml:"routesKey"`
}

// MetricsConfig contains metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// LoggingConfig contains logger configuration
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Router   RouterConfig   `yaml:"router"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

func (g GeocoderConfig) MinInterval() time.Duration {
	return time.Duration(g.MinIntervalMS) * time.Millisecond
}

func (g GeocoderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

func (r RouterConfig) MinInterval() time.Duration {
	return time.Duration(r.MinIntervalMS) * time.Millisecond
}

func (r RouterConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}
