package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/brager-bridge/internal/audit"
)

// healthCheckTimeout bounds each component health probe so one stuck
// component cannot hang the endpoint.
const healthCheckTimeout = 5 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/descriptors", s.handleListDescriptors)
		r.Get("/descriptors/{key}", s.handleGetDescriptor)
		r.Get("/modules", s.handleListModules)
		r.Get("/stats", s.handleStats)

		if s.audit != nil {
			r.Get("/writes", s.handleListWrites)
		}
	})

	return r
}

// handleHealth reports overall bridge health: server status, version, and
// per-component check results. Any failing component flips the status to
// degraded with a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.health))
	healthy := true

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	for name, checker := range s.health {
		if err := checker.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			healthy = false
			continue
		}
		components[name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

// handleListDescriptors returns every entity descriptor the bridge serves,
// sorted by key. The optional "platform" query parameter filters the list.
func (s *Server) handleListDescriptors(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")

	descriptors := s.bridge.Descriptors()
	filtered := descriptors[:0]
	for _, descriptor := range descriptors {
		if platform != "" && string(descriptor.Platform) != platform {
			continue
		}
		filtered = append(filtered, descriptor)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Key < filtered[j].Key })

	writeJSON(w, http.StatusOK, map[string]any{
		"descriptors": filtered,
		"count":       len(filtered),
	})
}

// handleGetDescriptor returns one descriptor by its "devid:symbol" key.
func (s *Server) handleGetDescriptor(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	for _, descriptor := range s.bridge.Descriptors() {
		if descriptor.Key == key {
			writeJSON(w, http.StatusOK, descriptor)
			return
		}
	}
	writeNotFound(w, "no descriptor with key "+key)
}

// handleListModules returns the bridged module metadata.
func (s *Server) handleListModules(w http.ResponseWriter, _ *http.Request) {
	modules := s.bridge.Modules()
	sort.Slice(modules, func(i, j int) bool { return modules[i].DevID < modules[j].DevID })

	writeJSON(w, http.StatusOK, map[string]any{
		"modules": modules,
		"count":   len(modules),
	})
}

// handleStats returns the bridge activity counters.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Stats().Snapshot())
}

// handleListWrites returns the command write log, most recent first.
// Query parameters: devid, symbol, failed, limit, offset.
func (s *Server) handleListWrites(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := audit.Filter{
		DevID:  query.Get("devid"),
		Symbol: query.Get("symbol"),
		Failed: query.Get("failed") == "true",
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command log", "error", err)
		writeInternalError(w, "listing command log failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
