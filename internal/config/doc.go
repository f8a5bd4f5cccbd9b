// Package config provides configuration loading and validation for the
// NOVA voice client. Values layer in precedence order: built-in defaults,
// then the YAML config file, then CLI flag overrides.
package config
