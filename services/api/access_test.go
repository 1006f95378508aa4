package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAllowList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "blanks only", raw: " , ,", want: nil},
		{name: "single", raw: "10.0.0.1", want: []string{"10.0.0.1", "::ffff:10.0.0.1"}},
		{
			name: "mapped and spaced",
			raw:  " 10.0.0.1 , ::FFFF:10.0.0.2",
			want: []string{"10.0.0.1", "::ffff:10.0.0.1", "10.0.0.2", "::ffff:10.0.0.2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAllowList(tt.raw)
			require.Len(t, got, len(tt.want))
			for _, ip := range tt.want {
				assert.Contains(t, got, ip)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "peer address", remoteAddr: "10.0.0.7:5123", want: "10.0.0.7"},
		{name: "mapped peer", remoteAddr: "[::ffff:10.0.0.7]:5123", want: "10.0.0.7"},
		{name: "first forwarded hop", remoteAddr: "172.16.0.1:80", forwarded: "203.0.113.9, 172.16.0.1", want: "203.0.113.9"},
		{name: "mapped forwarded hop", remoteAddr: "172.16.0.1:80", forwarded: "::ffff:203.0.113.9", want: "203.0.113.9"},
		{name: "blank forwarded falls back", remoteAddr: "10.0.0.7:5123", forwarded: " ", want: "10.0.0.7"},
		{name: "no port", remoteAddr: "10.0.0.7", want: "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestAccessGateMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowlist  string
		remoteAddr string
		want       int
	}{
		{name: "empty allowlist denies", allowlist: "", remoteAddr: "10.0.0.1:1", want: http.StatusForbidden},
		{name: "listed caller", allowlist: "10.0.0.1,10.0.0.2", remoteAddr: "10.0.0.2:1", want: http.StatusOK},
		{name: "mapped caller", allowlist: "10.0.0.1", remoteAddr: "[::ffff:10.0.0.1]:1", want: http.StatusOK},
		{name: "unlisted caller", allowlist: "10.0.0.1", remoteAddr: "10.0.0.3:1", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewAccessGate(tt.allowlist, zerolog.Nop(), nil)
			req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()

			gate.Middleware(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}

func TestIsSecure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://fleet.local/v1/nodes/heartbeat", nil)
	assert.False(t, isSecure(req))

	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	assert.True(t, isSecure(req))

	tlsReq := httptest.NewRequest(http.MethodPost, "https://fleet.local/v1/nodes/heartbeat", nil)
	assert.True(t, isSecure(tlsReq))
}
