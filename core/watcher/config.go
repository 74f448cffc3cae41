package watcher

import "time"

// Config locates the descriptor and controls reloads.
type Config struct {
	// Descriptor is the path to app.yaml.
	Descriptor string `mapstructure:"descriptor" default:"app.yaml"`
	// Root is the application root that static paths resolve against.
	Root string `mapstructure:"root" default:"."`
	// Watch enables reloading when the descriptor changes on disk.
	Watch bool `mapstructure:"watch" default:"true"`
	// CheckFiles verifies static paths under Root during validation.
	CheckFiles bool `mapstructure:"check_files" default:"true"`
	// DebounceMillis coalesces bursts of file events.
	DebounceMillis int `mapstructure:"debounce_ms" default:"500"`
}

// Debounce returns the event coalescing window.
func (c Config) Debounce() time.Duration {
	if c.DebounceMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// ValidationRoot returns the root passed to descriptor validation.
// An empty root disables file checks.
func (c Config) ValidationRoot() string {
	if !c.CheckFiles {
		return ""
	}
	if c.Root == "" {
		return "."
	}
	return c.Root
}
