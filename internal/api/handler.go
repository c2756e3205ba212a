package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/alerttree/internal/engine"
	"github.com/gyaneshwarpardhi/alerttree/internal/metrics"
)

const maxBodyBytes = 1 << 20

// ReloadFunc re-reads tree sources from disk and re-registers them.
type ReloadFunc func() error

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	reload ReloadFunc
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. reload may be nil,
// in which case POST /v1/reload answers 501.
func New(eng *engine.Engine, reload ReloadFunc, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{eng: eng, reload: reload, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/trees", h.importTree)
	h.mux.HandleFunc("GET /v1/trees", h.listTrees)
	h.mux.HandleFunc("GET /v1/trees/{id}", h.getTree)
	h.mux.HandleFunc("DELETE /v1/trees/{id}", h.deleteTree)
	h.mux.HandleFunc("GET /v1/trees/{id}/export", h.exportTree)
	h.mux.HandleFunc("POST /v1/trees/{id}/clone", h.cloneTree)
	h.mux.HandleFunc("POST /v1/trees/{id}/execute", h.executeTree)
	h.mux.HandleFunc("GET /v1/stats", h.allStats)
	h.mux.HandleFunc("GET /v1/stats/{id}", h.treeStats)
	h.mux.HandleFunc("GET /v1/handlers", h.listHandlers)
	h.mux.HandleFunc("POST /v1/reload", h.reloadTrees)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(logger, h.mux)
}

// treeSummary is the list view of a registered tree.
type treeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Nodes       int    `json:"nodes"`
}

type cloneRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type executeRequest struct {
	Data     map[string]interface{} `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
}

// POST /v1/trees — import a JSON tree definition.
func (h *Handler) importTree(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	t, err := h.eng.ImportTree(body)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GET /v1/trees
func (h *Handler) listTrees(w http.ResponseWriter, r *http.Request) {
	trees := h.eng.Trees()
	out := make([]treeSummary, 0, len(trees))
	for _, t := range trees {
		out = append(out, treeSummary{
			ID:          t.ID,
			Name:        t.Name,
			Version:     t.Version,
			Description: t.Description,
			Nodes:       t.Root.Count(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trees": out, "count": len(out)})
}

// GET /v1/trees/{id}
func (h *Handler) getTree(w http.ResponseWriter, r *http.Request) {
	t, err := h.eng.Tree(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DELETE /v1/trees/{id}
func (h *Handler) deleteTree(w http.ResponseWriter, r *http.Request) {
	if err := h.eng.UnregisterTree(r.PathValue("id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /v1/trees/{id}/export — the tree document, suitable for re-import.
func (h *Handler) exportTree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := h.eng.ExportTree(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// POST /v1/trees/{id}/clone — body {"id": "...", "name": "..."}, both optional.
func (h *Handler) cloneTree(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	t, err := h.eng.CloneTree(r.PathValue("id"), req.ID, req.Name)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// POST /v1/trees/{id}/execute[?async=true] — body {"data": {...}, "metadata": {...}}.
func (h *Handler) executeTree(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	id := r.PathValue("id")

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		if err := h.eng.ExecuteAsync(id, req.Data, req.Metadata); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"treeId": id, "queued": true})
		return
	}

	res, err := h.eng.Execute(r.Context(), id, req.Data, req.Metadata)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /v1/stats
func (h *Handler) allStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.AllStats())
}

// GET /v1/stats/{id}
func (h *Handler) treeStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.eng.Stats(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GET /v1/handlers — registered action and condition ids.
func (h *Handler) listHandlers(w http.ResponseWriter, r *http.Request) {
	reg := h.eng.Handlers()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions":    reg.Actions(),
		"conditions": reg.Conditions(),
	})
}

// POST /v1/reload — re-read tree sources from disk.
func (h *Handler) reloadTrees(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeError(w, http.StatusNotImplemented, "reload is not configured")
		return
	}
	if err := h.reload(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":    true,
		"trees_count": len(h.eng.Trees()),
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the async execution queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

// decodeOptional decodes a JSON body into v. An empty body leaves v zero.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
	return false
}
