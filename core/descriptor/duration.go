package descriptor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Automatic is the literal accepted wherever the platform picks the value.
const Automatic = "automatic"

// Duration is a descriptor duration such as "4d 5h", "30m", "200ms" or "automatic".
// The zero value means "automatic" (platform default).
type Duration time.Duration

// ParseDuration parses the App Engine duration syntax. Space separated terms are summed; each
// term is either a Go duration ("1.5s", "200ms") or a number of days ("2d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == Automatic {
		return 0, nil
	}

	var total time.Duration
	for _, term := range strings.Fields(s) {
		if days, ok := strings.CutSuffix(term, "d"); ok {
			n, err := strconv.ParseFloat(days, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid duration term %q", term)
			}
			total += time.Duration(n * float64(24*time.Hour))
			continue
		}
		d, err := time.ParseDuration(term)
		if err != nil {
			return 0, fmt.Errorf("invalid duration term %q", term)
		}
		total += d
	}

	if total < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return total, nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// IsAutomatic reports whether the value was omitted or set to "automatic".
func (d Duration) IsAutomatic() bool {
	return d == 0
}

func (d Duration) String() string {
	if d.IsAutomatic() {
		return Automatic
	}
	return time.Duration(d).String()
}

// UnmarshalYAML accepts strings in the descriptor syntax and bare integers as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}

	if value.Tag == "!!int" {
		n, err := strconv.Atoi(value.Value)
		if err != nil || n < 0 {
			return fmt.Errorf("line %d: invalid duration %q", value.Line, value.Value)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}

	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration for JSON output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
