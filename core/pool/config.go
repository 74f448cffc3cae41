package pool

import "time"

// Config holds configuration for local application instances.
type Config struct {
	// BasePort is the first port handed to an instance; instances use consecutive ports.
	BasePort int `mapstructure:"base_port" default:"8081"`
	// Shell runs the entrypoint command.
	Shell string `mapstructure:"shell" default:"/bin/sh"`
	// StartTimeoutSeconds bounds the wait for an instance to accept connections.
	StartTimeoutSeconds int `mapstructure:"start_timeout_seconds" default:"30"`
	// StopGraceSeconds is the time between SIGTERM and SIGKILL.
	StopGraceSeconds int `mapstructure:"stop_grace_seconds" default:"10"`
	// RestartDelayMillis delays replacing a crashed instance.
	RestartDelayMillis int `mapstructure:"restart_delay_ms" default:"1000"`
}

// StartTimeout returns the start timeout as a duration.
func (c Config) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutSeconds) * time.Second
}

// StopGrace returns the stop grace period as a duration.
func (c Config) StopGrace() time.Duration {
	return time.Duration(c.StopGraceSeconds) * time.Second
}

// RestartDelay returns the crash replacement delay.
func (c Config) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelayMillis) * time.Millisecond
}
