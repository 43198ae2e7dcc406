package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
// Default is 16 MiB so base64 payloads on /execute fit.
var maxBodyBytes int64 = defaultMaxBodyBytes

const defaultMaxBodyBytes = 16 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
		return
	}
	maxBodyBytes = n
}

// executeTimeout bounds one /execute or /models/load request. Zero means no
// additional timeout beyond server/connection timeouts.
var executeTimeout time.Duration

// SetExecuteTimeout sets the per-request timeout (<= 0 disables).
func SetExecuteTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	executeTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for muxes built afterwards.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
