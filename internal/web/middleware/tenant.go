package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type contextKey string

const tenantKey contextKey = "tenant_id"

// Tenant resolves the caller's tenant from the X-Tenant-ID header and stores
// it in the request context. Requests without a valid tenant UUID are
// rejected before any handler runs; every record and job is scoped by it.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := r.Header.Get("X-Tenant-ID")
		if tenant == "" {
			reject(w, "missing X-Tenant-ID header")
			return
		}
		if _, err := uuid.Parse(tenant); err != nil {
			reject(w, "invalid X-Tenant-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func reject(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":` + strconv.Quote(msg) + `}`))
}

// TenantID returns the tenant stored by Tenant, or "" outside its scope.
func TenantID(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey).(string); ok {
		return v
	}
	return ""
}
