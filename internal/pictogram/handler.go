package pictogram

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pictoforge/pictoforge/backend-go/internal/generate"
)

const maxUploadSize = 2 << 20 // 2MB

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the pictogram routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/pictograms", h.List).Methods("GET")
	r.HandleFunc("/api/pictograms", h.Create).Methods("POST")
	r.HandleFunc("/api/pictograms/import", h.Import).Methods("POST")
	r.HandleFunc("/api/pictograms/generate", h.Generate).Methods("POST")
	r.HandleFunc("/api/pictograms/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/pictograms/{id}", h.Save).Methods("PUT")
	r.HandleFunc("/api/pictograms/{id}", h.Delete).Methods("DELETE")
}

type createRequest struct {
	Name   string `json:"name"`
	Markup string `json:"markup"`
}

type saveRequest struct {
	Markup string `json:"markup"`
}

type generateRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.service.Create(r.Context(), req.Name, req.Markup)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	pictograms, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pictograms)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.service.SaveMarkup(r.Context(), mux.Vars(r)["id"], req.Markup)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/pictograms/import. It accepts a multipart form
// with a "file" field or a raw svg body; the name comes from the "name"
// query parameter or the uploaded file name.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	name := r.URL.Query().Get("name")

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 2MB)"})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
			return
		}
		defer file.Close()
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
		}
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 2MB)"})
		return
	}

	res, err := h.service.Import(r.Context(), name, bytes.NewReader(data))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	res, err := h.service.Generate(r.Context(), req.Name, req.Prompt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidMarkup):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, generate.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "generation is not configured"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
