package export

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nevesb/romc-catalog/internal/catalog"
)

func TestExportHandlerQueueAndDownload(t *testing.T) {
	service := NewService(fixtureEngine(), WithExportDirectory(t.TempDir()))
	handler := NewHTTPHandler(service)

	recorder := httptest.NewRecorder()
	body := strings.NewReader(`{"datasetTag": "2024-05-10", "format": "csv"}`)
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/exports", body))

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", recorder.Code, recorder.Body.String())
	}

	var report Report
	if err := json.NewDecoder(recorder.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Format != FormatCSV || report.FileName == "" {
		t.Fatalf("unexpected report: %+v", report)
	}

	download := httptest.NewRecorder()
	handler.ServeHTTP(download, httptest.NewRequest(http.MethodGet, "/exports/files/"+report.FileName, nil))
	if download.Code != http.StatusOK {
		t.Fatalf("expected 200 download, got %d", download.Code)
	}
	if got := download.Header().Get("Content-Disposition"); !strings.Contains(got, report.FileName) {
		t.Fatalf("expected attachment disposition, got %q", got)
	}
	if download.Body.Len() == 0 {
		t.Fatalf("expected file content")
	}
}

func TestExportHandlerRejectsBadPayload(t *testing.T) {
	service := NewService(fixtureEngine(), WithExportDirectory(t.TempDir()))
	handler := NewHTTPHandler(service)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader("{")))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestExportHandlerStatusByFailureKind(t *testing.T) {
	tests := []struct {
		name   string
		engine *catalog.Engine
		body   string
		want   int
	}{
		{
			name:   "unknown format is the caller's fault",
			engine: fixtureEngine(),
			body:   `{"format": "pdf"}`,
			want:   http.StatusBadRequest,
		},
		{
			name:   "empty store has nothing to report on",
			engine: emptyEngine(),
			body:   `{"format": "csv"}`,
			want:   http.StatusNotFound,
		},
		{
			name:   "store failure is not the caller's fault",
			engine: failingEngine(errors.New("connection reset")),
			body:   `{"format": "csv"}`,
			want:   http.StatusBadGateway,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := NewService(tc.engine, WithExportDirectory(t.TempDir()))
			handler := NewHTTPHandler(service)

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(tc.body)))
			if recorder.Code != tc.want {
				t.Fatalf("expected %d, got %d (body %q)", tc.want, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestExportHandlerUnknownDownload(t *testing.T) {
	service := NewService(fixtureEngine(), WithExportDirectory(t.TempDir()))
	handler := NewHTTPHandler(service)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/exports/files/missing.csv", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}
