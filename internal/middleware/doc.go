// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package middleware provides the HTTP middleware the API router stacks on
top of chi's own.

Key Components:

  - RequestID: reuses or generates X-Request-ID and seeds the logging context
  - PrometheusMetrics: request count and latency labelled by chi route pattern
  - Compression: pooled gzip writers for clients that send Accept-Encoding: gzip

All three use the func(http.Handler) http.Handler shape, so they plug
straight into chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.With(middleware.Compression).Get("/api/v1/sessions", h.ListSessions)

Route patterns rather than raw paths are used as the endpoint label, so
/api/v1/sessions/{id} is one series regardless of how many sessions exist.
Requests that match no route are recorded as "unmatched".

The metrics writer forwards Hijack and Flush, which keeps websocket
upgrades working behind it. Compression skips upgrades entirely.

See Also:

  - internal/api: router and handlers
  - internal/metrics: Prometheus metric definitions
*/
package middleware
