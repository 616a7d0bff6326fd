package httpapi

import "time"

const defaultMaxBodyBytes int64 = 64 << 20

// maxBodyBytes caps request bodies. Sessions carry cache windows, so the
// default is far above a typical JSON API's.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes configures the maximum request body size. Non-positive
// values restore the default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
		return
	}
	maxBodyBytes = n
}

// callTimeout bounds a single operation. Zero means no additional timeout
// beyond server/connection timeouts.
var callTimeout time.Duration

// SetCallTimeout sets the per-operation timeout (0 disables).
func SetCallTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	callTimeout = d
}

// apiKey, when set, is required as a bearer token on /v1 routes.
var apiKey string

// SetAPIKey enables bearer-token authentication. Empty disables it.
func SetAPIKey(key string) { apiKey = key }

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
