// Package server exposes the entity store over HTTP for development and
// tests. The route shapes mirror what the client's httpstore expects:
// /api/<type>/ collections with id-addressed members.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matthewbaird/crucible/internal/schema"
	"github.com/matthewbaird/crucible/internal/store"
)

// Config holds server configuration.
type Config struct {
	Addr     string
	Store    store.Store
	Registry *schema.Registry
	Log      *zap.Logger
	// EditHandler, when set, is mounted at /ws/edit for remote editor
	// sessions.
	EditHandler http.Handler
}

// NewRouter builds the entity API router.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{store: cfg.Store, registry: cfg.Registry, log: log}

	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.EditHandler != nil {
		r.Handle("/ws/edit", cfg.EditHandler)
	}
	r.Route("/api/{entityType}", func(r chi.Router) {
		r.Use(h.requireType)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
	return r
}

// Run starts the HTTP server and shuts it down when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	srv := &http.Server{Addr: cfg.Addr, Handler: NewRouter(cfg)}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("serving entity api", zap.String("addr", cfg.Addr))

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errc:
		return err
	}
}

type handler struct {
	store    store.Store
	registry *schema.Registry
	log      *zap.Logger
}

// requireType rejects requests for entity types the registry doesn't know.
func (h *handler) requireType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "entityType")
		if h.registry.Entity(name) == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown entity type %q", name))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	filter := store.Filter{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			filter[k] = vs[0]
		}
	}
	res, err := h.store.List(r.Context(), entityType, filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	if res == nil {
		res = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	doc, err := h.store.Create(r.Context(), entityType, payload)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.log.Info("created", zap.String("type", entityType), zap.Any("id", doc["id"]))
	writeJSON(w, http.StatusCreated, doc)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	id := chi.URLParam(r, "id")
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	doc, err := h.store.Update(r.Context(), entityType, id, payload)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), entityType, id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	h.log.Warn("store error", zap.Error(err))
	writeError(w, http.StatusBadRequest, err.Error())
}

func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return nil, false
	}
	return payload, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
