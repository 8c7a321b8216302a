// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the advisor service.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// =============================================================================
// Rate Limiting
// =============================================================================

// RateLimitConfig controls the per-client token buckets.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP. Default 5.
	RequestsPerSecond float64

	// Burst is the bucket capacity per client IP. Default 10.
	Burst int

	// ClientTTL is how long an idle client's bucket is kept before the
	// sweeper drops it. Default 10 minutes.
	ClientTTL time.Duration
}

func applyRateLimitDefaults(config RateLimitConfig) RateLimitConfig {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 5
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.ClientTTL <= 0 {
		config.ClientTTL = 10 * time.Minute
	}
	return config
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per client IP.
//
// # Thread Safety
//
// Safe for concurrent use. A background sweeper evicts idle clients so the
// map does not grow without bound.
type RateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter constructs a RateLimiter and starts its sweeper.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  applyRateLimitDefaults(config),
		clients: make(map[string]*clientLimiter),
	}
	go rl.sweep()
	return rl
}

// Allow reports whether the client may proceed.
func (r *RateLimiter) Allow(clientIP string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cl, ok := r.clients[clientIP]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(r.config.RequestsPerSecond), r.config.Burst),
		}
		r.clients[clientIP] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

// sweep drops buckets for clients idle longer than ClientTTL.
func (r *RateLimiter) sweep() {
	ticker := time.NewTicker(r.config.ClientTTL)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-r.config.ClientTTL)
		r.mu.Lock()
		for ip, cl := range r.clients {
			if cl.lastSeen.Before(cutoff) {
				delete(r.clients, ip)
			}
		}
		r.mu.Unlock()
	}
}

// Middleware returns the gin handler enforcing the limit.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, slow down",
			})
			return
		}
		c.Next()
	}
}
