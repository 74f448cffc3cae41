package server

import "time"

// Config holds configuration for the HTTP front server.
type Config struct {
	// Port is the port the front server listens on. It falls back to $PORT when unset.
	Port string `mapstructure:"port" default:""`
	// ApiKey protects the admin routes. Empty disables the check.
	ApiKey string `mapstructure:"api_key" default:""`
	// AdminPrefix is where the admin and health routes are mounted.
	AdminPrefix string `mapstructure:"admin_prefix" default:"/_ah"`
	// ReadTimeoutSeconds bounds reading a client request.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"30"`
	// ProxyTimeoutSeconds bounds a proxied request to an instance, including the wait for a free slot.
	ProxyTimeoutSeconds int `mapstructure:"proxy_timeout_seconds" default:"60"`
}

// DefaultPort is used when neither the config nor $PORT set a port.
const DefaultPort = "8080"

// ListenPort resolves the port, preferring the explicit setting over the environment value.
func (c Config) ListenPort(envPort string) string {
	if c.Port != "" {
		return c.Port
	}
	if envPort != "" {
		return envPort
	}
	return DefaultPort
}

// ReadTimeout returns the request read timeout.
func (c Config) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// ProxyTimeout returns the upstream timeout.
func (c Config) ProxyTimeout() time.Duration {
	if c.ProxyTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.ProxyTimeoutSeconds) * time.Second
}
