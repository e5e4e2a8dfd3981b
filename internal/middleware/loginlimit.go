package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/audit"
)

const loginLimitKeyPrefix = "loginlimit:"

var loginLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    return 0
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

return 1
`)

// LoginRateLimitMiddleware throttles login attempts per source IP using a
// redis sliding window, so the limit holds across server instances.
type LoginRateLimitMiddleware struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLoginRateLimitMiddleware(client *redis.Client, limit int, window time.Duration) *LoginRateLimitMiddleware {
	return &LoginRateLimitMiddleware{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (m *LoginRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		key := loginLimitKeyPrefix + ip

		allowed, err := loginLimitScript.Run(
			r.Context(), m.client, []string{key},
			time.Now().Unix(), int64(m.window.Seconds()), m.limit,
		).Int64()
		if err != nil {
			log.Warn().Err(err).Msg("login rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if allowed != 1 {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventRateLimitExceed})
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(m.window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many login attempts. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
