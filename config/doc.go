// Package config loads service configuration from YAML files and environment
// variables via viper. Service config structs embed ServiceConfig, which
// supplies the common name/environment/logging fields and promotes the
// methods the loader relies on (ApplyDefaults, Validate, GetServiceConfig).
package config
