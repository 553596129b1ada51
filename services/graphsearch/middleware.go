// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphsearch

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// requestIDKey is the gin context key holding the request id.
const requestIDKey = "request_id"

// RequestIDMiddleware propagates X-Request-ID, generating one when absent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestIDKey, getOrCreateRequestID(c))
		c.Next()
	}
}

// getOrCreateRequestID returns the request id for c, echoing it in the
// response header.
func getOrCreateRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// RateLimitMiddleware applies a token bucket shared by every request.
//
// Description:
//
//	Requests beyond the bucket are answered with 429 RATE_LIMITED and
//	counted in metrics. A non-positive rps disables limiting.
//
// Inputs:
//
//	rps - Sustained requests per second.
//	burst - Bucket size. Values below 1 are raised to 1.
//	metrics - Receives the rejection count. May be nil.
func RateLimitMiddleware(rps float64, burst int, metrics *HTTPMetrics) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if limiter.Allow() {
			c.Next()
			return
		}
		if metrics != nil {
			metrics.RateLimitedTotal.Inc()
		}
		slog.Warn("Rate limit exceeded",
			slog.String("request_id", getOrCreateRequestID(c)),
			slog.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many requests",
			Code:  CodeRateLimited,
		})
	}
}
