// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// loginPeekBytes caps how much of a login body the limiter reads to find
// the account.
const loginPeekBytes = 4 << 10

// KeyFunc derives the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimiter is a sliding-window limiter over request keys. Expired
// buckets are swept lazily, at most once per window.
type RateLimiter struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	limit     int
	window    time.Duration
	key       KeyFunc
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows limit requests per window for each key.
func NewRateLimiter(limit int, window time.Duration, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		key:    key,
		now:    time.Now,
	}
}

// allow records a hit for key and reports whether it is within the limit.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) >= rl.window {
		for k, ts := range rl.hits {
			if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
				delete(rl.hits, k)
			}
		}
		rl.lastSweep = now
	}

	ts := rl.hits[key]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	ts = ts[i:]
	if len(ts) >= rl.limit {
		rl.hits[key] = ts
		return false
	}
	rl.hits[key] = append(ts, now)
	return true
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		if !rl.allow(key) {
			slog.Warn("rate limited", "key", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ByIP keys requests on the client address. Behind a proxy, install
// chi's RealIP middleware first so RemoteAddr carries the client.
func ByIP(r *http.Request) string {
	return clientIP(r)
}

// ByLoginAccount keys login attempts on the submitted email plus the client
// address, so one client guessing one account is throttled without locking
// the account out for everyone else. The body is restored for the handler.
func ByLoginAccount(r *http.Request) string {
	ip := clientIP(r)
	if r.Body == nil {
		return ip
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, loginPeekBytes))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
	if err != nil {
		return ip
	}

	var req struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &req) != nil || req.Email == "" {
		return ip
	}
	return strings.ToLower(strings.TrimSpace(req.Email)) + "|" + ip
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
