// Copyright (c) 2026 Maktaba. All rights reserved.

package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/maktaba/maktaba/internal/platform/constants"
	"github.com/maktaba/maktaba/internal/platform/postgres"
	"github.com/maktaba/maktaba/internal/platform/redis"
	"github.com/maktaba/maktaba/internal/platform/respond"
)

// liveness answers as long as the process can serve requests.
func liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{
		"status":  "ok",
		"name":    constants.AppName,
		"version": constants.AppVersion,
	})
}

// readiness also checks the backing stores, so an orchestrator stops routing
// traffic when either goes away.
func readiness(db *pgxpool.Pool, client *goredis.Client) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		checks := map[string]string{"postgres": "ok", "redis": "ok"}
		healthy := true

		if err := postgres.Ping(request.Context(), db); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		}
		if err := redis.Ping(request.Context(), client); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}

		if !healthy {
			respond.JSON(writer, http.StatusServiceUnavailable, checks)
			return
		}
		respond.OK(writer, checks)
	}
}
