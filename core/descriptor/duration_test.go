package descriptor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"automatic", 0, false},
		{"200ms", 200 * time.Millisecond, false},
		{"1.5s", 1500 * time.Millisecond, false},
		{"1d", 24 * time.Hour, false},
		{"4d 5h", 4*24*time.Hour + 5*time.Hour, false},
		{"1d 2h 30m 15s", 26*time.Hour + 30*time.Minute + 15*time.Second, false},
		{"forever", 0, true},
		{"1x", 0, true},
		{"-5s", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
		C Duration `yaml:"c"`
	}
	err := yaml.Unmarshal([]byte("a: 2d\nb: 45\nc: automatic\n"), &v)
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, v.A.Std())
	assert.Equal(t, 45*time.Second, v.B.Std())
	assert.True(t, v.C.IsAutomatic())
	assert.Equal(t, "automatic", v.C.String())
}

func TestDuration_UnmarshalYAMLRejectsGarbage(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
	}
	err := yaml.Unmarshal([]byte("a: soon\n"), &v)
	assert.Error(t, err)

	err = yaml.Unmarshal([]byte("a: [1, 2]\n"), &v)
	assert.Error(t, err)
}
