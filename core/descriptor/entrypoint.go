package descriptor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var portRef = regexp.MustCompile(`\$(PORT\b|\{PORT\})`)

// Gunicorn defaults applied when the flag is absent.
const (
	gunicornDefaultWorkers = 1
	gunicornDefaultThreads = 1
	gunicornDefaultTimeout = 30 * time.Second
)

// Entrypoint is the parsed form of the entrypoint command.
type Entrypoint struct {
	Command string   `json:"command"`
	Program string   `json:"program"`
	Args    []string `json:"args"`
	// Gunicorn is set when the program is gunicorn.
	Gunicorn *GunicornOptions `json:"gunicorn,omitempty"`
}

// GunicornOptions are the process model settings read from a gunicorn command line.
type GunicornOptions struct {
	Workers int           `json:"workers"`
	Threads int           `json:"threads"`
	Timeout time.Duration `json:"timeout"`
	Bind    string        `json:"bind"`
	App     string        `json:"app"`
}

// Capacity is the number of requests the process model serves concurrently.
func (g GunicornOptions) Capacity() int {
	return g.Workers * g.Threads
}

// ParseEntrypoint splits the command and extracts gunicorn settings when present.
// Leading VAR=value assignments are skipped when finding the program.
func ParseEntrypoint(command string) Entrypoint {
	ep := Entrypoint{Command: command}
	fields := splitCommand(command)

	i := 0
	for i < len(fields) && isAssignment(fields[i]) {
		i++
	}
	if i >= len(fields) {
		return ep
	}

	ep.Program = fields[i]
	ep.Args = fields[i+1:]

	if base := ep.Program[strings.LastIndex(ep.Program, "/")+1:]; base == "gunicorn" {
		g := parseGunicorn(ep.Args)
		ep.Gunicorn = &g
	}
	return ep
}

// BindsPort reports whether the command references $PORT.
func (e Entrypoint) BindsPort() bool {
	return portRef.MatchString(e.Command)
}

func parseGunicorn(args []string) GunicornOptions {
	g := GunicornOptions{
		Workers: gunicornDefaultWorkers,
		Threads: gunicornDefaultThreads,
		Timeout: gunicornDefaultTimeout,
	}

	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "-") {
			g.App = args[i]
			continue
		}
		if !hasValue && i+1 < len(args) && takesValue(name) {
			i++
			value = args[i]
		}

		switch name {
		case "-w", "--workers":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				g.Workers = n
			}
		case "--threads":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				g.Threads = n
			}
		case "-t", "--timeout":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				g.Timeout = time.Duration(n) * time.Second
			}
		case "-b", "--bind":
			g.Bind = value
		}
	}
	return g
}

func takesValue(flag string) bool {
	switch flag {
	case "-w", "--workers", "--threads", "-t", "--timeout", "-b", "--bind",
		"-k", "--worker-class", "-c", "--config", "--log-level", "--chdir":
		return true
	}
	return false
}

func isAssignment(field string) bool {
	name, _, ok := strings.Cut(field, "=")
	if !ok || name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// splitCommand splits on whitespace, keeping single and double quoted sections together.
func splitCommand(s string) []string {
	var (
		fields []string
		cur    strings.Builder
		quote  rune
		inWord bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				fields = append(fields, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		fields = append(fields, cur.String())
	}
	return fields
}
