// Package middleware provides the HTTP middleware faultline mounts in front
// of every route.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/ratelimit"
	"github.com/shashiranjanraj/faultline/pkg/response"
)

// RateLimit rejects clients whose IP has exhausted its bucket in l with a
// 429 envelope and a Retry-After header.
//
//	r.Use(middleware.RateLimit(ratelimit.New(50, 100)))
func RateLimit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if ok, wait := l.Allow(ip); !ok {
				logger.WithCtx(r.Context()).Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(wait)))
				response.Error(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
