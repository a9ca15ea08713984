// Package config handles application configuration loading and validation.
//
// Configuration is loaded from a YAML file (config.yml by default) and
// validated using struct tags. Defaults are filled in for every optional
// setting, so a config file only needs the cache locations that differ from
// the defaults.
package config
