package httpapi

import (
	"bufio"
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/askme/internal/core/domain"
	"github.com/custodia-labs/askme/internal/logger"
)

// HeaderRequestID carries the request's correlation ID.
const HeaderRequestID = "X-Request-ID"

// HeaderAPIKey carries the tenant API key.
const HeaderAPIKey = "X-API-Key"

// maxLimiters bounds the number of tenants with live rate limiters.
const maxLimiters = 4096

type (
	requestIDKey struct{}
	tenantKey    struct{}
)

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func tenantFrom(ctx context.Context) *domain.Tenant {
	t, _ := ctx.Value(tenantKey{}).(*domain.Tenant)
	return t
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the WebSocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRequestID assigns every request an ID and logs its outcome.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		logger.Debug("[%s] %s %s %d %s", id, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// requireTenant resolves the API key to a tenant and applies its rate limit.
func (s *Server) requireTenant(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderAPIKey)
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		tenant, err := s.tenants.Resolve(r.Context(), key)
		if err != nil {
			writeError(w, statusFor(err), "missing or invalid API key")
			return
		}
		if !s.limiters.allow(tenant.ID) {
			writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, tenant)))
	}
}

// requireAdmin checks the bearer token against the configured admin token.
// With no token configured the route is disabled.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusForbidden, "tenant provisioning is disabled")
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusForbidden, "invalid admin token")
			return
		}
		next(w, r)
	}
}

// tenantLimiters hands out one token bucket per tenant.
type tenantLimiters struct {
	limit rate.Limit
	burst int
	cache *lru.Cache[string, *rate.Limiter]
}

func newTenantLimiters(rps float64, burst int) *tenantLimiters {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	cache, _ := lru.New[string, *rate.Limiter](maxLimiters)
	return &tenantLimiters{limit: rate.Limit(rps), burst: burst, cache: cache}
}

func (l *tenantLimiters) allow(tenantID string) bool {
	if l == nil {
		return true
	}
	limiter, ok := l.cache.Get(tenantID)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		if prev, ok, _ := l.cache.PeekOrAdd(tenantID, limiter); ok {
			limiter = prev
		}
	}
	return limiter.Allow()
}
