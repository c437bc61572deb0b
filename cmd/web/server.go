package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"media-studio/internal/design"
	"media-studio/internal/studio"
)

const maxUploadBytes = 50 << 20

type server struct {
	studio *studio.Studio
	logger *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

type assetsResponse struct {
	Assets []studio.Asset `json:"assets"`
	Stats  studio.Stats   `json:"stats"`
	Mode   modeView       `json:"mode"`
}

type modeView struct {
	Name    string `json:"name"`
	AssetID string `json:"assetId,omitempty"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply studio.Message `json:"reply"`
	Spec  design.Spec    `json:"spec"`
	Mode  modeView       `json:"mode"`
}

type applyRequest struct {
	Index int `json:"index"`
}

func newRouter(st *studio.Studio, logger *slog.Logger) http.Handler {
	s := &server{studio: st, logger: logger}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api", func(api chi.Router) {
		api.Get("/products", s.handleProducts)
		api.Get("/spec", s.handleSpec)
		api.Patch("/spec", s.handlePatchSpec)

		api.Get("/assets", s.handleAssets)
		api.Post("/assets", s.handleUpload)
		api.Delete("/assets", s.handleClear)
		api.Delete("/assets/{id}", s.handleRemove)
		api.Get("/assets/{id}/export", s.handleExport)
		api.Post("/assets/{id}/remix", s.handleRemix)
		api.Post("/assets/{id}/retry", s.handleRetry)
		api.Post("/assets/{id}/refine", s.handleRefine)
		api.Delete("/assets/{id}/refine", s.handleExitRefine)

		api.Post("/synthesize", s.handleSynthesize)
		api.Post("/chat", s.handleChat)
		api.Get("/chat", s.handleHistory)
		api.Get("/suggestions", s.handleSuggestions)
		api.Post("/suggestions/apply", s.handleApplySuggestion)
		api.Get("/log", s.handleLog)
	})
	return r
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"products": s.studio.Catalog().Products(),
		"selected": s.studio.SelectedProduct().ID,
	})
}

func (s *server) handleSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.Spec())
}

func (s *server) handlePatchSpec(w http.ResponseWriter, r *http.Request) {
	var p design.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid spec patch"})
		return
	}
	writeJSON(w, http.StatusOK, s.studio.UpdateSpec(p))
}

func (s *server) handleAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, assetsResponse{
		Assets: s.studio.Assets(),
		Stats:  s.studio.Stats(),
		Mode:   viewMode(s.studio.Mode()),
	})
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}

	var files []*multipart.FileHeader
	files = append(files, r.MultipartForm.File["images[]"]...)
	files = append(files, r.MultipartForm.File["images"]...)
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing images"})
		return
	}

	productID := strings.TrimSpace(r.FormValue("product"))
	if productID != "" {
		if _, ok := s.studio.Catalog().Lookup(productID); !ok {
			writeJSON(w, http.StatusBadRequest, apiError{Error: studio.ErrUnknownProduct.Error()})
			return
		}
	}

	note := strings.TrimSpace(r.FormValue("note"))
	uploads := make([]studio.Upload, 0, len(files))
	for _, fh := range files {
		data, mimeType, err := readUpload(fh)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "failed to read image"})
			return
		}
		uploads = append(uploads, studio.Upload{Data: data, MimeType: mimeType, Note: note})
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"assets": s.studio.AddItems(uploads, productID),
	})
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.studio.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Remove(assetID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.studio.Export(assetID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("content-type", "image/png")
	w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *server) handleRemix(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Remix(assetID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	id, _ := s.studio.RemixTemplate()
	writeJSON(w, http.StatusOK, map[string]string{"template": id})
}

func (s *server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := assetID(r)
	if err := s.studio.Retry(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.studio.Asset(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *server) handleRefine(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Refine(assetID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	history := s.studio.History()
	writeJSON(w, http.StatusOK, chatResponse{
		Reply: history[len(history)-1],
		Spec:  s.studio.Spec(),
		Mode:  viewMode(s.studio.Mode()),
	})
}

func (s *server) handleExitRefine(w http.ResponseWriter, r *http.Request) {
	s.studio.ExitRefine()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	sum, err := s.studio.SynthesizeAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid chat request"})
		return
	}

	reply, err := s.studio.Chat(r.Context(), req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Reply: reply,
		Spec:  s.studio.Spec(),
		Mode:  viewMode(s.studio.Mode()),
	})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.studio.History()})
}

func (s *server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.URL.Query().Get("product"))
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": s.studio.Suggestions(r.Context(), productID),
	})
}

func (s *server) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid apply request"})
		return
	}

	reply, err := s.studio.ApplySuggestion(req.Index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Reply: reply,
		Spec:  s.studio.Spec(),
		Mode:  viewMode(s.studio.Mode()),
	})
}

func (s *server) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.studio.Log()})
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, apiError{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, studio.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, studio.ErrNotRemixable), errors.Is(err, studio.ErrNoResult), errors.Is(err, studio.ErrNotRetryable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, studio.ErrEmptyMessage), errors.Is(err, studio.ErrNoSuggestion), errors.Is(err, studio.ErrUnknownProduct):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func viewMode(m studio.Mode) modeView {
	if r, ok := m.(studio.Refining); ok {
		return modeView{Name: "refining", AssetID: r.AssetID}
	}
	return modeView{Name: "negotiating"}
}

func assetID(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "id")))
}

func readUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}

	mimeType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
