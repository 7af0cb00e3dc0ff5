package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nassor22/maarifaHub/internal/metrics"
)

const (
	violationLimit = 10
	violationTTL   = time.Hour
	autoBlockTTL   = 24 * time.Hour
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Pattern  string // "METHOD /path" prefix
	Requests int
	Window   time.Duration
}

// DefaultLimits are matched in order; the first prefix match wins.
var DefaultLimits = []RateLimit{
	{"POST /messages/conversations/", 30, time.Minute},
	{"POST /messages/conversations", 10, time.Minute},
	{"GET /messages/conversations", 240, time.Minute},
	{"GET /notifications", 120, time.Minute},
	{"GET /events", 60, time.Minute},
}

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	Limits           []RateLimit // defaults to DefaultLimits
	Whitelist        []string    // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled bool        // Enable auto-blocking after repeated violations
}

// RateLimiter limits requests per client IP. With a Redis client it keeps
// a sliding window shared by every instance; without one it keeps token
// buckets in process.
type RateLimiter struct {
	client           *redis.Client
	limits           []RateLimit
	blocker          *IPBlocker
	logger           zerolog.Logger
	whitelist        []*net.IPNet
	whitelistIPs     map[string]bool
	autoBlockEnabled bool

	mu         sync.Mutex
	buckets    map[string]*rate.Limiter
	violations map[string]int
}

// NewRateLimiter creates a new rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger, cfg RateLimiterConfig) *RateLimiter {
	limits := cfg.Limits
	if len(limits) == 0 {
		limits = DefaultLimits
	}

	rl := &RateLimiter{
		client:           client,
		limits:           limits,
		blocker:          NewIPBlocker(client),
		logger:           logger,
		whitelistIPs:     make(map[string]bool),
		autoBlockEnabled: cfg.AutoBlockEnabled,
		buckets:          make(map[string]*rate.Limiter),
		violations:       make(map[string]int),
	}

	// Parse whitelist entries
	for _, entry := range cfg.Whitelist {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn().Str("entry", entry).Err(err).Msg("invalid CIDR in whitelist")
				continue
			}
			rl.whitelist = append(rl.whitelist, ipNet)
		} else {
			rl.whitelistIPs[entry] = true
		}
	}

	if len(cfg.Whitelist) > 0 {
		logger.Info().
			Int("ips", len(rl.whitelistIPs)).
			Int("cidrs", len(rl.whitelist)).
			Msg("rate limit whitelist configured")
	}

	backend := "memory"
	if client != nil {
		backend = "redis"
	}
	logger.Info().Str("backend", backend).Int("rules", len(limits)).Msg("rate limiter ready")

	return rl
}

// isWhitelisted checks if an IP is in the whitelist.
func (rl *RateLimiter) isWhitelisted(ipStr string) bool {
	if rl.whitelistIPs[ipStr] {
		return true
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, ipNet := range rl.whitelist {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// CheckAndIncrement checks rate limit and increments counter.
// Returns (allowed, remaining, resetAt).
func (rl *RateLimiter) CheckAndIncrement(ctx context.Context, key string, limit RateLimit) (bool, int, time.Time) {
	if rl.client == nil {
		return rl.checkLocal(key, limit)
	}
	return rl.checkRedis(ctx, key, limit)
}

func (rl *RateLimiter) checkRedis(ctx context.Context, key string, limit RateLimit) (bool, int, time.Time) {
	now := time.Now()
	windowStart := now.Add(-limit.Window)

	pipe := rl.client.Pipeline()

	// Drop entries that slid out of the window
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixMilli(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, limit.Window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		// fail open; a Redis outage must not take the API down
		rl.logger.Error().Err(err).Str("key", key).Msg("rate limit check failed")
		return true, limit.Requests, now.Add(limit.Window)
	}

	count := countCmd.Val()
	remaining := limit.Requests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return count < int64(limit.Requests), remaining, now.Add(limit.Window)
}

func (rl *RateLimiter) checkLocal(key string, limit RateLimit) (bool, int, time.Time) {
	now := time.Now()

	rl.mu.Lock()
	lim, ok := rl.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(limit.Window/time.Duration(limit.Requests)), limit.Requests)
		rl.buckets[key] = lim
	}
	rl.mu.Unlock()

	allowed := lim.AllowN(now, 1)
	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, now.Add(limit.Window)
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := RealIP(r)

		if rl.isWhitelisted(ip) {
			next.ServeHTTP(w, r)
			return
		}

		if rl.blocker.IsBlocked(r.Context(), ip) {
			metrics.BlockedRequests.WithLabelValues("ip_blocked").Inc()
			rl.logger.Warn().
				Str("type", "security").
				Str("event", "blocked_request").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Msg("blocked IP attempted request")
			jsonError(w, http.StatusForbidden, "temporarily blocked")
			return
		}

		limit, ok := rl.findLimit(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:ip:%s:%s", ip, limit.Pattern)
		allowed, remaining, resetAt := rl.CheckAndIncrement(r.Context(), key, limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())))
			metrics.RateLimitHits.WithLabelValues(limit.Pattern).Inc()

			rl.trackViolation(r.Context(), ip)

			rl.logger.Warn().
				Str("type", "security").
				Str("event", "rate_limit_exceeded").
				Str("ip", ip).
				Str("endpoint", r.URL.Path).
				Str("key", key).
				Msg("rate limit exceeded")

			jsonError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// findLimit returns the first rule whose pattern prefixes the request.
func (rl *RateLimiter) findLimit(r *http.Request) (RateLimit, bool) {
	key := r.Method + " " + r.URL.Path
	for _, limit := range rl.limits {
		if strings.HasPrefix(key, limit.Pattern) {
			return limit, true
		}
	}
	return RateLimit{}, false
}

// trackViolation counts rate limit violations and auto-blocks repeat offenders.
func (rl *RateLimiter) trackViolation(ctx context.Context, ip string) {
	if !rl.autoBlockEnabled {
		return
	}

	var count int64
	if rl.client != nil {
		key := "violations:ip:" + ip
		count, _ = rl.client.Incr(ctx, key).Result()
		rl.client.Expire(ctx, key, violationTTL)
	} else {
		rl.mu.Lock()
		rl.violations[ip]++
		count = int64(rl.violations[ip])
		if count >= violationLimit {
			delete(rl.violations, ip)
		}
		rl.mu.Unlock()
	}

	if count >= violationLimit {
		rl.blocker.Block(ctx, ip, autoBlockTTL, "repeated rate limit violations")
		metrics.BlockedRequests.WithLabelValues("auto_block").Inc()
		rl.logger.Warn().
			Str("type", "security").
			Str("event", "ip_auto_blocked").
			Str("ip", ip).
			Int64("violations", count).
			Msg("IP auto-blocked for repeated violations")
	}
}

// IPBlocker manages temporary IP blocks, in Redis when a client is given
// and in process otherwise.
type IPBlocker struct {
	client *redis.Client

	mu     sync.Mutex
	blocks map[string]time.Time
}

// NewIPBlocker creates a new IP blocker. client may be nil.
func NewIPBlocker(client *redis.Client) *IPBlocker {
	return &IPBlocker{client: client, blocks: make(map[string]time.Time)}
}

func blockKey(ip string) string {
	return "blocked:ip:" + ip
}

// IsBlocked checks if an IP is blocked.
func (b *IPBlocker) IsBlocked(ctx context.Context, ip string) bool {
	if b.client != nil {
		exists, _ := b.client.Exists(ctx, blockKey(ip)).Result()
		return exists > 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.blocks[ip]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(b.blocks, ip)
		return false
	}
	return true
}

// Block blocks an IP for the specified duration.
func (b *IPBlocker) Block(ctx context.Context, ip string, duration time.Duration, reason string) {
	if b.client != nil {
		b.client.Set(ctx, blockKey(ip), reason, duration)
		return
	}
	b.mu.Lock()
	b.blocks[ip] = time.Now().Add(duration)
	b.mu.Unlock()
}

// Unblock removes an IP block.
func (b *IPBlocker) Unblock(ctx context.Context, ip string) {
	if b.client != nil {
		b.client.Del(ctx, blockKey(ip))
		return
	}
	b.mu.Lock()
	delete(b.blocks, ip)
	b.mu.Unlock()
}
