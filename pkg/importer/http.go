package importer

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vitalvault/importer/pkg/common/logger"
	"github.com/vitalvault/importer/pkg/common/models"
	"github.com/vitalvault/importer/pkg/parser"
	"github.com/vitalvault/importer/pkg/store"
)

type HTTPHandler struct {
	orchestrator *Orchestrator
	store        store.RecordStore
	maxBody      int64
}

func NewHTTPHandler(orchestrator *Orchestrator, st store.RecordStore, maxBody int64) *HTTPHandler {
	return &HTTPHandler{orchestrator: orchestrator, store: st, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/import", h.handleImport).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/imports", h.handleListImports).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/files", h.handleListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/files/{id}", h.handleFileStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/session/reset", h.handleReset).Methods(http.MethodPost)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
}

// handleImport accepts a multipart form with one or more files under the
// "files" field and runs them through the import pipeline. The response is the
// batch summary; per-file failures are reported inside it, not as an HTTP
// error.
func (h *HTTPHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		logger.Log.WithError(err).Warn("invalid import upload")
		http.Error(w, "invalid multipart request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	files := make([]UploadedFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			http.Error(w, "unreadable upload", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, "unreadable upload", http.StatusBadRequest)
			return
		}
		files = append(files, UploadedFile{Name: header.Filename, Data: data})
	}

	summary, err := h.orchestrator.ProcessFiles(r.Context(), files)
	if err != nil {
		logger.Log.WithError(err).Error("import batch failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if summary.FilesFailed > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, summary)
}

func (h *HTTPHandler) handleListImports(w http.ResponseWriter, r *http.Request) {
	batches, err := h.store.ListImports(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list imports")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if batches == nil {
		batches = []models.ImportBatch{}
	}
	respondJSON(w, http.StatusOK, batches)
}

func (h *HTTPHandler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.Session().Files())
}

func (h *HTTPHandler) handleFileStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pf, ok := h.orchestrator.Session().Get(id)
	if !ok {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, pf)
}

func (h *HTTPHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.Session().Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"formats": supportedFormats(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func supportedFormats() []string {
	return []string{
		string(parser.FormatSamsungExport),
		string(parser.FormatClinicalBundle),
		string(parser.FormatClinicalArchive),
		string(parser.FormatGenericCSV),
		string(parser.FormatLabDocument),
	}
}
