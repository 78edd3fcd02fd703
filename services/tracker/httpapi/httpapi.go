// Package httpapi exposes the tracker over a small JSON HTTP surface,
// meant for local consumers like the popup UI or curl.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"duesoon-backend/lib/scrapers/gradescope"
	"duesoon-backend/services/tracker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/tracker/httpapi")

type Handler struct {
	svc *tracker.Service
}

func New(svc *tracker.Service) http.Handler {
	h := Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/snapshot", h.getSnapshot)
	r.Get("/upcoming", h.getUpcoming)
	r.Post("/refresh", h.postRefresh)
	r.Post("/scrapes", h.postScrapes)
	r.Patch("/settings", h.patchSettings)
	r.Delete("/data", h.deleteData)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (h Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "getSnapshot")
	defer span.End()

	snapshot, err := h.svc.GetSnapshot(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h Handler) getUpcoming(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "getUpcoming")
	defer span.End()

	items, err := h.svc.Upcoming(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []tracker.UpcomingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h Handler) postRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "postRefresh")
	defer span.End()

	summary, err := h.svc.RefreshAll(ctx)
	if errors.Is(err, tracker.ErrRefreshInFlight) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h Handler) postScrapes(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "postScrapes")
	defer span.End()

	var res gradescope.ScrapeResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.ApplyScrapeResult(ctx, res); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h Handler) patchSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "patchSettings")
	defer span.End()

	var patch tracker.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := h.svc.UpdateSettings(ctx, patch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h Handler) deleteData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "deleteData")
	defer span.End()

	if err := h.svc.ClearAll(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
