// Package config holds the settings of registry-validator: defaults, the
// optional YAML configuration file, and validation.
package config
