package descriptor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Limits accepted by the platform.
const (
	MaxConcurrentRequestsLimit = 1000
	DefaultConcurrentRequests  = 10
)

var runtimePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Issue is a single validation finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// Report collects validation issues in the order they were found.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) errorf(field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityError, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityWarning, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Errors returns only the error-severity issues.
func (r Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (r Report) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// Strict returns a copy of the report with warnings promoted to errors.
func (r Report) Strict() Report {
	out := Report{Issues: make([]Issue, len(r.Issues))}
	for i, issue := range r.Issues {
		issue.Severity = SeverityError
		out.Issues[i] = issue
	}
	return out
}

// Err returns nil when the report holds no errors.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	joined := make([]error, 0, len(errs))
	for _, i := range errs {
		joined = append(joined, errors.New(i.Field+": "+i.Message))
	}
	return fmt.Errorf("invalid descriptor: %w", errors.Join(joined...))
}

// Validate checks the descriptor. When root is non-empty, static paths are resolved
// against it as they would be at package time.
func (d *Descriptor) Validate(root string) Report {
	var r Report

	d.validateRuntime(&r)
	d.validateEntrypoint(&r)
	d.validateScaling(&r)
	d.validateHandlers(&r)
	if root != "" {
		d.validateFiles(&r, root)
	}

	return r
}

func (d *Descriptor) validateRuntime(r *Report) {
	if d.Runtime == "" {
		r.errorf("runtime", "runtime is required")
		return
	}
	if !runtimePattern.MatchString(d.Runtime) {
		r.errorf("runtime", "invalid runtime identifier %q", d.Runtime)
	}
}

func (d *Descriptor) validateEntrypoint(r *Report) {
	if strings.TrimSpace(d.Entrypoint) == "" {
		if d.HasScriptHandler() {
			r.errorf("entrypoint", "entrypoint is required when a handler uses script: auto")
		}
		return
	}

	ep := ParseEntrypoint(d.Entrypoint)
	if !ep.BindsPort() {
		r.errorf("entrypoint", "entrypoint must bind to $PORT")
	}

	if ep.Gunicorn != nil {
		capacity := ep.Gunicorn.Capacity()
		if mcr := d.AutomaticScaling.MaxConcurrentRequests; mcr > capacity {
			r.warnf("automatic_scaling.max_concurrent_requests",
				"%d exceeds gunicorn capacity of %d (workers*threads); requests will queue inside the instance", mcr, capacity)
		}
	}
}

func (d *Descriptor) validateScaling(r *Report) {
	s := d.AutomaticScaling

	if s.TargetCPUUtilization != 0 && (s.TargetCPUUtilization <= 0 || s.TargetCPUUtilization > 1) {
		r.errorf("automatic_scaling.target_cpu_utilization", "must lie in (0,1], got %v", s.TargetCPUUtilization)
	}
	if s.TargetThroughputUtilization != 0 && (s.TargetThroughputUtilization <= 0 || s.TargetThroughputUtilization > 1) {
		r.errorf("automatic_scaling.target_throughput_utilization", "must lie in (0,1], got %v", s.TargetThroughputUtilization)
	}
	if s.MaxConcurrentRequests < 0 || s.MaxConcurrentRequests > MaxConcurrentRequestsLimit {
		r.errorf("automatic_scaling.max_concurrent_requests", "must be unset or lie in [1,%d], got %d", MaxConcurrentRequestsLimit, s.MaxConcurrentRequests)
	}
	if s.MaxIdleInstances < 0 {
		r.errorf("automatic_scaling.max_idle_instances", "must not be negative")
	}
	if s.MinIdleInstances < 0 {
		r.errorf("automatic_scaling.min_idle_instances", "must not be negative")
	}
	if s.MaxIdleInstances > 0 && s.MinIdleInstances > s.MaxIdleInstances {
		r.errorf("automatic_scaling.min_idle_instances", "exceeds max_idle_instances")
	}
	if s.MinInstances < 0 || s.MaxInstances < 0 {
		r.errorf("automatic_scaling", "instance bounds must not be negative")
	}
	if s.MaxInstances > 0 && s.MinInstances > s.MaxInstances {
		r.errorf("automatic_scaling.min_instances", "exceeds max_instances")
	}
	if !s.MinPendingLatency.IsAutomatic() && !s.MaxPendingLatency.IsAutomatic() && s.MinPendingLatency > s.MaxPendingLatency {
		r.errorf("automatic_scaling.min_pending_latency", "exceeds max_pending_latency")
	}
}

func (d *Descriptor) validateHandlers(r *Report) {
	if len(d.Handlers) == 0 {
		r.warnf("handlers", "no handlers declared; every request will return 404")
		return
	}

	catchAll := -1
	for i, h := range d.Handlers {
		field := fmt.Sprintf("handlers[%d]", i)

		if catchAll >= 0 {
			r.errorf(field, "unreachable: follows catch-all handler handlers[%d]", catchAll)
		}

		if h.URL == "" {
			r.errorf(field+".url", "url is required")
		} else if _, err := regexp.Compile(h.URL); err != nil {
			r.errorf(field+".url", "invalid regular expression: %v", err)
		}

		switch h.Kind() {
		case KindInvalid:
			r.errorf(field, "exactly one of static_dir, static_files or script must be set")
		case KindScript:
			if h.Script != ScriptAuto {
				r.errorf(field+".script", "only %q is supported, got %q", ScriptAuto, h.Script)
			}
			if !h.Expiration.IsAutomatic() {
				r.warnf(field+".expiration", "expiration is ignored on script handlers")
			}
		case KindStaticFiles:
			if h.Upload == "" {
				r.errorf(field+".upload", "upload is required with static_files")
			} else if _, err := regexp.Compile(h.Upload); err != nil {
				r.errorf(field+".upload", "invalid regular expression: %v", err)
			}
		case KindStaticDir:
			if strings.ContainsAny(h.URL, "()[]*+?|^$") {
				r.warnf(field+".url", "static_dir url is matched as a path prefix, not a regular expression")
			}
		}

		switch h.Secure {
		case SecureDefault, SecureAlways, SecureOptional, SecureNever:
		default:
			r.errorf(field+".secure", "must be one of always, optional, never; got %q", h.Secure)
		}

		switch h.RedirectHTTPResponseCode {
		case 0, 301, 302, 303, 307:
		default:
			r.errorf(field+".redirect_http_response_code", "must be 301, 302, 303 or 307")
		}

		if h.Login != "" {
			r.warnf(field+".login", "login is not enforced by this host")
		}

		if h.IsCatchAll() && catchAll < 0 {
			catchAll = i
		}
	}

	last := d.Handlers[len(d.Handlers)-1]
	if d.HasScriptHandler() && !(last.IsCatchAll() && last.Kind() == KindScript) {
		r.warnf("handlers", "the last handler should be the catch-all .* script route")
	}
}

func (d *Descriptor) validateFiles(r *Report, root string) {
	var files []string
	walked := false
	listFiles := func() []string {
		if walked {
			return files
		}
		walked = true
		_ = filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err == nil {
				files = append(files, filepath.ToSlash(rel))
			}
			return nil
		})
		return files
	}

	for i, h := range d.Handlers {
		field := fmt.Sprintf("handlers[%d]", i)

		switch h.Kind() {
		case KindStaticDir:
			dir := path.Clean(h.StaticDir)
			if escapesRoot(dir) {
				r.errorf(field+".static_dir", "%q escapes the application root", h.StaticDir)
				continue
			}
			info, err := os.Stat(filepath.Join(root, filepath.FromSlash(dir)))
			if err != nil {
				r.errorf(field+".static_dir", "%q does not exist", h.StaticDir)
			} else if !info.IsDir() {
				r.errorf(field+".static_dir", "%q is not a directory", h.StaticDir)
			}
		case KindStaticFiles:
			upload, err := regexp.Compile(anchor(h.Upload))
			if h.Upload == "" || err != nil {
				continue
			}
			found := false
			for _, f := range listFiles() {
				if upload.MatchString(f) {
					found = true
					break
				}
			}
			if !found {
				r.errorf(field+".upload", "pattern %q matches no file under the application root", h.Upload)
			}
		}
	}
}

func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel)
}

// anchor wraps a pattern so it must match the whole input.
func anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}
