package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when the descriptor has no content.
var ErrEmpty = errors.New("descriptor is empty")

// Parse decodes a descriptor. Unknown keys and multiple documents are rejected.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("strict descriptor parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("descriptor contains multiple documents or trailing content")
	}

	return &d, nil
}

// Load reads and parses the descriptor at path. The raw bytes are returned for digesting.
func Load(path string) (*Descriptor, []byte, error) {
	// #nosec G304 -- descriptor path is provided by the operator
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read descriptor: %w", err)
	}

	d, err := Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, raw, nil
}
