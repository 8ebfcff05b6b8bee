package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nevesb/romc-catalog/internal/catalog"
	"github.com/nevesb/romc-catalog/internal/domain"
)

// Handler serves the engine's read operations as plain JSON endpoints.
type Handler struct {
	engine *catalog.Engine
	logger *slog.Logger
}

// NewHTTPHandler creates the read API handler.
func NewHTTPHandler(engine *catalog.Engine, logger *slog.Logger) http.Handler {
	return &Handler{engine: engine, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 3 && parts[0] == "skills" && parts[2] == "chain":
		h.handleSkillChain(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "formulas" && parts[2] == "diff":
		h.handleFormulaDiff(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "formulas" && parts[2] == "lint":
		h.handleFormulaLint(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "formulas" && parts[2] == "dependencies":
		h.handleDependencies(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "formulas" && parts[2] == "dependents":
		h.handleDependents(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "bundles" && parts[1] == "diff":
		h.handleBundleDiff(w, r)
	case len(parts) == 2 && parts[0] == "bundles" && parts[1] == "snapshot-diff":
		h.handleSnapshotDiff(w, r)
	case len(parts) == 2 && parts[0] == "entities":
		h.handleEntities(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "snapshots" && parts[1] == "previous":
		h.handlePreviousSnapshot(w, r)
	case len(parts) == 1 && parts[0] == "snapshots":
		h.handleSnapshots(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleSkillChain(w http.ResponseWriter, r *http.Request, rawID string) {
	skillID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid skill id: %v", err), http.StatusBadRequest)
		return
	}

	chain, err := h.engine.ResolveSkillChain(r.Context(), skillID)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

func (h *Handler) handleFormulaDiff(w http.ResponseWriter, r *http.Request, name string) {
	diff, err := h.engine.DiffFormulaVersions(r.Context(), name, r.URL.Query().Get("tag"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	if diff == nil {
		http.Error(w, "no previous version to diff against", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

func (h *Handler) handleFormulaLint(w http.ResponseWriter, r *http.Request, name string) {
	result, err := h.engine.LintFormula(r.Context(), name, r.URL.Query().Get("tag"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDependencies(w http.ResponseWriter, r *http.Request, name string) {
	deps, err := h.engine.DependenciesOf(r.Context(), name, r.URL.Query().Get("tag"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

func (h *Handler) handleDependents(w http.ResponseWriter, r *http.Request, name string) {
	dependents, err := h.engine.DependentsOf(r.Context(), name, r.URL.Query().Get("tag"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       name,
		"dependents": dependents,
	})
}

func (h *Handler) handleEntities(w http.ResponseWriter, r *http.Request, rawCollection string) {
	collection, ok := domain.ParseCollection(rawCollection)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown collection %q", rawCollection), http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	filter := domain.RecordFilter{
		DatasetTag:   query.Get("tag"),
		TextContains: query.Get("q"),
	}
	if rawID := query.Get("id"); rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid entity id: %v", err), http.StatusBadRequest)
			return
		}
		filter.ID = &id
	}

	records, err := h.engine.FindEntities(r.Context(), collection, filter)
	if err != nil {
		h.storeError(w, err)
		return
	}
	if records == nil {
		records = []domain.EntityRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleBundleDiff(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	path := query.Get("path")
	tag := query.Get("tag")
	if path == "" || tag == "" {
		http.Error(w, "path and tag query parameters are required", http.StatusBadRequest)
		return
	}

	diff, ok, err := h.engine.DiffBundleManifests(r.Context(), path, tag, query.Get("previous"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "bundle manifest not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

func (h *Handler) handleSnapshotDiff(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tag := query.Get("tag")
	if tag == "" {
		http.Error(w, "tag query parameter is required", http.StatusBadRequest)
		return
	}

	diff, err := h.engine.DiffSnapshotBundles(r.Context(), tag, query.Get("previous"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.engine.Snapshots(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (h *Handler) handlePreviousSnapshot(w http.ResponseWriter, r *http.Request) {
	previous, ok, err := h.engine.PreviousSnapshot(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "no earlier snapshot", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, previous)
}

// storeError maps backing-store failures to 502; the engine never errors on
// data-quality issues, so anything arriving here is a repository problem.
func (h *Handler) storeError(w http.ResponseWriter, err error) {
	h.logger.Error("repository failure", "error", err)
	http.Error(w, "record store unavailable", http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
