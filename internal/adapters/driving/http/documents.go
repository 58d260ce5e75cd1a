package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driving"
)

// maxUploadBytes matches the document service upload cap.
const maxUploadBytes = 10 << 20

// IngestRequest is a batch of documents to index
// @Description Document ingest batch
type IngestRequest struct {
	Documents []domain.IngestItem `json:"documents"`
}

// handleIngestDocuments godoc
// @Summary      Ingest documents
// @Description  Indexes a batch of documents. Items already indexed for the same connector are skipped; failing items are reported without aborting the batch.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      IngestRequest  true  "Documents"
// @Success      200      {object}  domain.IngestReport
// @Failure      400      {object}  ErrorResponse
// @Router       /api/v1/documents [post]
func (s *Server) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := s.services.Documents.Ingest(r.Context(), userID(r), req.Documents)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleUploadDocument godoc
// @Summary      Upload a document
// @Description  Extracts text from an uploaded file (text, markdown, CSV, JSON, HTML, PDF) and indexes it
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file         formData  file    true   "File to index"
// @Param        connectorId  formData  string  false  "Owning connector (default documents)"
// @Param        metadata     formData  string  false  "JSON object of extra metadata"
// @Success      200          {object}  domain.IngestReport
// @Failure      400          {object}  ErrorResponse
// @Failure      413          {object}  ErrorResponse
// @Router       /api/v1/documents/upload [post]
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	req := driving.UploadRequest{
		ConnectorID: r.FormValue("connectorId"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Metadata); err != nil {
			writeError(w, http.StatusBadRequest, "metadata must be a JSON object")
			return
		}
	}

	report, err := s.services.Documents.Upload(r.Context(), userID(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleSearchDocuments godoc
// @Summary      Search documents
// @Description  Ranked full-text search with a substring fallback
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.SearchQuery  true  "Query"
// @Success      200      {object}  domain.SearchResult
// @Failure      400      {object}  ErrorResponse
// @Router       /api/v1/documents/search [post]
func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	var q domain.SearchQuery
	if !decodeJSON(w, r, &q) {
		return
	}

	res, err := s.services.Documents.Search(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetDocument godoc
// @Summary      Get a document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.services.Documents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
