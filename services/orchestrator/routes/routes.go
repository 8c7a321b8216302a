// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nestready/nestready/pkg/logging"
	"github.com/nestready/nestready/services/advisor/loop"
	"github.com/nestready/nestready/services/advisor/pipeline"
	"github.com/nestready/nestready/services/orchestrator/handlers"
	"github.com/nestready/nestready/services/orchestrator/middleware"
)

// Deps holds the wired collaborators the routes close over.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Advisor  *loop.Advisor
	Sessions *loop.SessionStore
	Limiter  *middleware.RateLimiter
	Logger   *logging.Logger
}

// SetupRoutes registers all HTTP routes on the router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	if deps.Limiter != nil {
		v1.Use(deps.Limiter.Middleware())
	}
	{
		v1.POST("/analysis/stream", handlers.HandleAnalysisStream(deps.Pipeline, deps.Logger))
		v1.POST("/chat/advisor", handlers.HandleAdvisorChat(deps.Advisor, deps.Sessions, deps.Logger))
		v1.GET("/chat/advisor/ws", handlers.HandleAdvisorWebSocket(deps.Advisor, deps.Sessions, deps.Logger))
	}
}
