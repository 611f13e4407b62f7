package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEndpointURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		allowLocal bool
		wantErr    bool
	}{
		{"public https", "https://openrouter.ai/api/v1/chat/completions", false, false},
		{"public https with port", "https://gateway.example.com:8443/v1", false, false},
		{"public ip https", "https://8.8.8.8/v1", false, false},

		{"http rejected", "http://openrouter.ai/v1", false, true},
		{"http allowed locally", "http://127.0.0.1:8080/v1", true, false},

		{"localhost", "https://localhost/v1", false, true},
		{"localhost subdomain", "https://api.localhost/v1", false, true},
		{"mdns local", "https://gateway.local/v1", false, true},
		{"localhost allowed locally", "http://localhost:11434/v1", true, false},

		{"loopback ip", "https://127.0.0.1/v1", false, true},
		{"private ip", "https://10.0.0.5/v1", false, true},
		{"private ip 192", "https://192.168.1.10/v1", false, true},
		{"link local", "https://169.254.169.254/latest/meta-data", false, true},
		{"unspecified", "https://0.0.0.0/v1", false, true},
		{"ipv6 loopback", "https://[::1]/v1", false, true},
		{"mapped loopback", "https://[::ffff:127.0.0.1]/v1", false, true},

		{"ftp scheme", "ftp://openrouter.ai/v1", false, true},
		{"missing host", "https:///v1", false, true},
		{"garbage", "://nope", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpointURL(tt.url, tt.allowLocal)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
