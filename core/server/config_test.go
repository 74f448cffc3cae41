package server_test

import (
	"testing"
	"time"

	"app-host/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ListenPort(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		envPort string
		want    string
	}{
		{"Explicit", "9000", "8081", "9000"},
		{"Environment", "", "8081", "8081"},
		{"Default", "", "", server.DefaultPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := server.Config{Port: tt.port}
			assert.Equal(t, tt.want, c.ListenPort(tt.envPort))
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	c := server.Config{}
	assert.Equal(t, 30*time.Second, c.ReadTimeout())
	assert.Equal(t, 60*time.Second, c.ProxyTimeout())

	c = server.Config{ReadTimeoutSeconds: 5, ProxyTimeoutSeconds: 7}
	assert.Equal(t, 5*time.Second, c.ReadTimeout())
	assert.Equal(t, 7*time.Second, c.ProxyTimeout())
}
