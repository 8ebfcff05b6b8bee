package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Handler exposes report generation and download over HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler creates the export handler.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost:
		h.handleQueue(w, r)
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/files/"):
		h.handleDownload(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type queueReportPayload struct {
	DatasetTag string `json:"datasetTag"`
	Format     string `json:"format"`
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload queueReportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	format := Format(strings.ToLower(strings.TrimSpace(payload.Format)))
	if format == "" {
		format = FormatXLSX
	}

	report, err := h.service.SnapshotReport(r.Context(), payload.DatasetTag, format)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, ErrNoSnapshot):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	default:
		http.Error(w, "record store unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(report)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/files/")
	fileName := parts[len(parts)-1]

	file, err := h.service.Open(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, file)
}
