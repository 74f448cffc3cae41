package router

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"app-host/core/descriptor"
)

var backref = regexp.MustCompile(`\\(\d)`)

type compiled struct {
	index   int
	handler descriptor.Handler
	kind    descriptor.HandlerKind
	prefix  string
	pattern *regexp.Regexp
}

// Router matches paths to handlers. It is immutable and safe for concurrent use.
type Router struct {
	handlers []compiled
}

// Match is the result of resolving a path.
type Match struct {
	Index   int
	Handler descriptor.Handler
	Kind    descriptor.HandlerKind
	// File is the slash separated path relative to the application root (static kinds only).
	File string
}

// Route describes one handler for display.
type Route struct {
	Index      int    `json:"index"`
	URL        string `json:"url"`
	Kind       string `json:"kind"`
	Target     string `json:"target"`
	Secure     string `json:"secure,omitempty"`
	Expiration string `json:"expiration,omitempty"`
}

// New compiles the descriptor handlers in order.
func New(d *descriptor.Descriptor) (*Router, error) {
	r := &Router{handlers: make([]compiled, 0, len(d.Handlers))}

	for i, h := range d.Handlers {
		c := compiled{index: i, handler: h, kind: h.Kind()}

		switch c.kind {
		case descriptor.KindStaticDir:
			c.prefix = "/" + strings.Trim(h.URL, "/")
		case descriptor.KindStaticFiles, descriptor.KindScript:
			re, err := regexp.Compile("^(?:" + h.URL + ")$")
			if err != nil {
				return nil, fmt.Errorf("handlers[%d]: invalid url %q: %w", i, h.URL, err)
			}
			c.pattern = re
		default:
			return nil, fmt.Errorf("handlers[%d]: no target", i)
		}

		r.handlers = append(r.handlers, c)
	}

	return r, nil
}

// Match returns the first handler matching urlPath.
func (r *Router) Match(urlPath string) (*Match, bool) {
	if urlPath == "" {
		urlPath = "/"
	}

	for _, c := range r.handlers {
		switch c.kind {
		case descriptor.KindStaticDir:
			rest, ok := underPrefix(urlPath, c.prefix)
			if !ok {
				continue
			}
			file, ok := joinWithin(c.handler.StaticDir, rest)
			if !ok {
				continue
			}
			return &Match{Index: c.index, Handler: c.handler, Kind: c.kind, File: file}, true

		case descriptor.KindStaticFiles:
			groups := c.pattern.FindStringSubmatch(urlPath)
			if groups == nil {
				continue
			}
			file, ok := cleanRelative(expand(c.handler.StaticFiles, groups))
			if !ok {
				continue
			}
			return &Match{Index: c.index, Handler: c.handler, Kind: c.kind, File: file}, true

		case descriptor.KindScript:
			if c.pattern.MatchString(urlPath) {
				return &Match{Index: c.index, Handler: c.handler, Kind: c.kind}, true
			}
		}
	}

	return nil, false
}

// Routes returns the route table in evaluation order.
func (r *Router) Routes() []Route {
	routes := make([]Route, 0, len(r.handlers))
	for _, c := range r.handlers {
		route := Route{
			Index:  c.index,
			URL:    c.handler.URL,
			Kind:   string(c.kind),
			Secure: c.handler.Secure,
		}
		switch c.kind {
		case descriptor.KindStaticDir:
			route.Target = c.handler.StaticDir + "/"
		case descriptor.KindStaticFiles:
			route.Target = c.handler.StaticFiles
		case descriptor.KindScript:
			route.Target = c.handler.Script
		}
		if !c.handler.Expiration.IsAutomatic() {
			route.Expiration = c.handler.Expiration.String()
		}
		routes = append(routes, route)
	}
	return routes
}

// Len returns the number of handlers.
func (r *Router) Len() int {
	return len(r.handlers)
}

func underPrefix(urlPath, prefix string) (string, bool) {
	if prefix == "/" {
		return strings.TrimPrefix(urlPath, "/"), true
	}
	if urlPath == prefix {
		return "", true
	}
	if strings.HasPrefix(urlPath, prefix+"/") {
		return urlPath[len(prefix)+1:], true
	}
	return "", false
}

// joinWithin joins dir and rest, refusing results outside dir.
func joinWithin(dir, rest string) (string, bool) {
	base, ok := cleanRelative(dir)
	if !ok || hasDotDot(rest) {
		return "", false
	}
	if rest == "" {
		return base, true
	}
	return path.Join(base, rest), true
}

func cleanRelative(p string) (string, bool) {
	if hasDotDot(p) {
		return "", false
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return ".", true
	}
	return cleaned, true
}

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func expand(template string, groups []string) string {
	return backref.ReplaceAllStringFunc(template, func(ref string) string {
		n, _ := strconv.Atoi(ref[1:])
		if n < len(groups) {
			return groups[n]
		}
		return ""
	})
}
