package authz

import (
	"context"
	"net/http"
)

type contextKey string

const deviceIDKey contextKey = "device_id"

// WithDevice stores the authenticated device id on the context.
func WithDevice(ctx context.Context, deviceID string) context.Context {
	if deviceID == "" {
		return ctx
	}
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

func DeviceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func DeviceIDFromRequest(r *http.Request) (string, bool) {
	return DeviceIDFromContext(r.Context())
}
