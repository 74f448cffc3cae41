package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Descriptor is the parsed deployment descriptor.
type Descriptor struct {
	// Runtime is the language/runtime version identifier (e.g. python39).
	Runtime string `yaml:"runtime" json:"runtime"`
	// Entrypoint is the shell command that starts the application. It must bind to $PORT.
	Entrypoint string `yaml:"entrypoint" json:"entrypoint"`
	// Service is the service name; empty means "default".
	Service string `yaml:"service,omitempty" json:"service,omitempty"`
	// InstanceClass is accepted for compatibility and only reported.
	InstanceClass string `yaml:"instance_class,omitempty" json:"instance_class,omitempty"`
	// Env is accepted for compatibility (standard or flex).
	Env string `yaml:"env,omitempty" json:"env,omitempty"`

	AutomaticScaling AutomaticScaling `yaml:"automatic_scaling" json:"automatic_scaling"`
	Handlers         []Handler        `yaml:"handlers" json:"handlers"`

	// DefaultExpiration is the cache TTL for static handlers without their own expiration.
	DefaultExpiration Duration `yaml:"default_expiration,omitempty" json:"default_expiration,omitempty"`
	// EnvVariables are exported to every instance process.
	EnvVariables map[string]string `yaml:"env_variables,omitempty" json:"env_variables,omitempty"`

	InboundServices []string `yaml:"inbound_services,omitempty" json:"inbound_services,omitempty"`
	AppEngineAPIs   bool     `yaml:"app_engine_apis,omitempty" json:"app_engine_apis,omitempty"`
}

// AutomaticScaling holds the load-based scaling parameters.
type AutomaticScaling struct {
	MinIdleInstances            int      `yaml:"min_idle_instances,omitempty" json:"min_idle_instances,omitempty"`
	MaxIdleInstances            int      `yaml:"max_idle_instances,omitempty" json:"max_idle_instances,omitempty"`
	TargetCPUUtilization        float64  `yaml:"target_cpu_utilization,omitempty" json:"target_cpu_utilization,omitempty"`
	TargetThroughputUtilization float64  `yaml:"target_throughput_utilization,omitempty" json:"target_throughput_utilization,omitempty"`
	MinPendingLatency           Duration `yaml:"min_pending_latency,omitempty" json:"min_pending_latency,omitempty"`
	MaxPendingLatency           Duration `yaml:"max_pending_latency,omitempty" json:"max_pending_latency,omitempty"`
	MaxConcurrentRequests       int      `yaml:"max_concurrent_requests,omitempty" json:"max_concurrent_requests,omitempty"`
	MinInstances                int      `yaml:"min_instances,omitempty" json:"min_instances,omitempty"`
	MaxInstances                int      `yaml:"max_instances,omitempty" json:"max_instances,omitempty"`
}

// Handler binds a URL pattern to static content or to the application.
type Handler struct {
	URL         string `yaml:"url" json:"url"`
	StaticDir   string `yaml:"static_dir,omitempty" json:"static_dir,omitempty"`
	StaticFiles string `yaml:"static_files,omitempty" json:"static_files,omitempty"`
	Upload      string `yaml:"upload,omitempty" json:"upload,omitempty"`
	Script      string `yaml:"script,omitempty" json:"script,omitempty"`

	Secure     string   `yaml:"secure,omitempty" json:"secure,omitempty"`
	Expiration Duration `yaml:"expiration,omitempty" json:"expiration,omitempty"`

	MimeType                 string            `yaml:"mime_type,omitempty" json:"mime_type,omitempty"`
	HTTPHeaders              map[string]string `yaml:"http_headers,omitempty" json:"http_headers,omitempty"`
	RedirectHTTPResponseCode int               `yaml:"redirect_http_response_code,omitempty" json:"redirect_http_response_code,omitempty"`

	Login               string `yaml:"login,omitempty" json:"login,omitempty"`
	AuthFailAction      string `yaml:"auth_fail_action,omitempty" json:"auth_fail_action,omitempty"`
	ApplicationReadable bool   `yaml:"application_readable,omitempty" json:"application_readable,omitempty"`
	RequireMatchingFile bool   `yaml:"require_matching_file,omitempty" json:"require_matching_file,omitempty"`
}

// HandlerKind classifies a handler by its target.
type HandlerKind string

const (
	KindStaticDir   HandlerKind = "static_dir"
	KindStaticFiles HandlerKind = "static_files"
	KindScript      HandlerKind = "script"
	KindInvalid     HandlerKind = ""
)

// ScriptAuto is the only script value supported: delegate to the entrypoint.
const ScriptAuto = "auto"

const (
	SecureDefault  = ""
	SecureAlways   = "always"
	SecureOptional = "optional"
	SecureNever    = "never"
)

// Kind returns the handler kind, or KindInvalid when zero or several targets are set.
func (h Handler) Kind() HandlerKind {
	kind := KindInvalid
	n := 0
	if h.StaticDir != "" {
		kind = KindStaticDir
		n++
	}
	if h.StaticFiles != "" {
		kind = KindStaticFiles
		n++
	}
	if h.Script != "" {
		kind = KindScript
		n++
	}
	if n != 1 {
		return KindInvalid
	}
	return kind
}

// IsStatic reports whether the handler serves files.
func (h Handler) IsStatic() bool {
	k := h.Kind()
	return k == KindStaticDir || k == KindStaticFiles
}

// IsCatchAll reports whether the handler matches every path.
func (h Handler) IsCatchAll() bool {
	switch strings.TrimSpace(h.URL) {
	case ".*", "/.*", "(.*)", "/(.*)", "^.*$":
		return true
	}
	return false
}

// CacheTTL returns the handler expiration, falling back to the descriptor default.
func (d *Descriptor) CacheTTL(h Handler) Duration {
	if !h.Expiration.IsAutomatic() {
		return h.Expiration
	}
	return d.DefaultExpiration
}

// HasScriptHandler reports whether any handler delegates to the application.
func (d *Descriptor) HasScriptHandler() bool {
	for _, h := range d.Handlers {
		if h.Kind() == KindScript {
			return true
		}
	}
	return false
}

// ServiceName returns the service name, "default" when unset.
func (d *Descriptor) ServiceName() string {
	if d.Service == "" {
		return "default"
	}
	return d.Service
}

// Digest returns the hex sha256 of the raw descriptor bytes.
func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
