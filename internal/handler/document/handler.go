package document

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/padalah/interviewflow/internal/service/document"
	"github.com/padalah/interviewflow/pkg/utils"
)

// Handler serves the document upload endpoint.
type Handler struct {
	extractor *document.Extractor
}

// New creates the upload handler.
func New(extractor *document.Extractor) *Handler {
	return &Handler{extractor: extractor}
}

// RegisterRoutes mounts the upload endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload_document", h.handleUpload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	// One byte of slack beyond the limit so the extractor can distinguish
	// "too large" from a short read.
	r.Body = http.MaxBytesReader(w, r.Body, document.MaxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(document.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.RespondError(w, http.StatusBadRequest, document.ErrTooLarge.Error())
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, document.MaxUploadBytes+1))
	if err != nil {
		log.Printf("[document] read upload failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	text, err := h.extractor.Extract(data, contentTypeFor(header))
	if err != nil {
		switch {
		case errors.Is(err, document.ErrTooLarge),
			errors.Is(err, document.ErrUnsupportedType),
			errors.Is(err, document.ErrUnparsable):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[document] extraction failed for %s: %v", header.Filename, err)
			utils.RespondError(w, http.StatusInternalServerError, "document extraction failed")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"extractedText": text,
		"filename":      header.Filename,
	})
}

// contentTypeFor prefers the declared part content type and falls back to
// the filename extension, since browsers do not always set one.
func contentTypeFor(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf":
		return document.ContentTypePDF
	case ".docx":
		return document.ContentTypeDocx
	case ".txt":
		return document.ContentTypeText
	default:
		return header.Header.Get("Content-Type")
	}
}
