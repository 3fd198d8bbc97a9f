package middleware

import "context"

type contextKey struct{ name string }

var (
	userIDKey     = contextKey{"user_id"}
	deviceNameKey = contextKey{"device_name"}
	clientIPKey   = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the authenticated user and device.
// The auth service and the audit logger read these via GetUserID / GetDeviceName.
func WithIdentity(ctx context.Context, userID, deviceName string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, deviceNameKey, deviceName)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetDeviceName returns the device_name from context and true if set; otherwise "", false.
func GetDeviceName(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(deviceNameKey).(string)
	return v, ok
}

// WithClientIP returns a context carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP returns the client IP from context, or "unknown" if unset.
// Matches the audit.IPExtractor signature.
func GetClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientIPKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
