package middleware

import (
	"context"
	"net/http"
)

// AppKeyHeader carries the calling application's key.
const AppKeyHeader = "X-App-Key"

type contextKey string

const (
	appKeyKey = contextKey("appKey")
	scopeKey  = contextKey("scope")
)

// AppKeyGate admits requests whose X-App-Key header is one of keys and stores
// the key in the request context.
func AppKeyGate(keys []string) Stage {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			allowed[k] = struct{}{}
		}
	}

	return func(r *http.Request) (*http.Request, *Rejection) {
		key := r.Header.Get(AppKeyHeader)
		if _, ok := allowed[key]; key == "" || !ok {
			return r, &Rejection{Stage: "app_key", Status: http.StatusForbidden, Message: "Unauthorized"}
		}
		return r.WithContext(context.WithValue(r.Context(), appKeyKey, key)), nil
	}
}

// AppKeyFromContext returns the key stored by AppKeyGate.
func AppKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(appKeyKey).(string)
	return key, ok
}
