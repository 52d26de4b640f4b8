// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// readinessTimeout bounds all dependency checks of one readiness probe.
const readinessTimeout = 3 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components,omitempty"`
	Embeds     int               `json:"embeds"`
	Observers  int               `json:"observers"`
}

// Live reports that the process is up. It never touches dependencies.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, HealthStatus{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Embeds:    h.registry.Len(),
		Observers: h.hub.GetClientCount(),
	})
}

// Ready runs every registered check and answers 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{
		Status:     "ok",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Components: make(map[string]string, len(names)),
		Embeds:     h.registry.Len(),
		Observers:  h.hub.GetClientCount(),
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status.Status = "degraded"
			status.Components[name] = err.Error()
			continue
		}
		status.Components[name] = "ok"
	}

	rw := NewResponseWriter(w, r)
	if status.Status != "ok" {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "one or more components are unhealthy",
			map[string]interface{}{"components": status.Components})
		return
	}
	rw.Success(status)
}
