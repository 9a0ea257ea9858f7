package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/awsl-project/ranstat/internal/domain"
)

const (
	defaultImportListLimit = 50
	maxImportListLimit     = 500
	defaultUploadName      = "upload.csv"
)

// Importer runs one import. Implemented by service.ImportService.
type Importer interface {
	Import(ctx context.Context, feed domain.Feed, fileName string, r io.Reader) (*domain.ImportSummary, error)
}

// ImportLister lists recent import batches. Implemented by service.QueryService.
type ImportLister interface {
	ListImports(ctx context.Context, limit int) ([]*domain.ImportSummary, error)
}

// ImportHandler handles file uploads and the import history
type ImportHandler struct {
	importer Importer
	lister   ImportLister
	auth     *AuthMiddleware
	maxBytes int64
}

// NewImportHandler creates an import handler. maxUploadMB <= 0 means no limit.
func NewImportHandler(importer Importer, lister ImportLister, auth *AuthMiddleware, maxUploadMB int) *ImportHandler {
	if auth == nil {
		auth = NewAuthMiddleware("")
	}
	return &ImportHandler{
		importer: importer,
		lister:   lister,
		auth:     auth,
		maxBytes: int64(maxUploadMB) << 20,
	}
}

func (h *ImportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/imports", h.handleList)
	r.With(h.auth.Wrap).Post("/api/imports/{feed}", h.handleUpload)
}

// handleUpload 流式导入上传的文件，不落盘
// POST /api/imports/{feed}
// 支持 multipart 的 file 字段，或者直接以请求体上传（文件名取 ?name=）
func (h *ImportHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	feed, err := domain.ParseFeed(chi.URLParam(r, "feed"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.importMultipart(w, r, feed)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = defaultUploadName
	}
	summary, err := h.importer.Import(r.Context(), feed, name, r.Body)
	h.writeResult(w, summary, err)
}

func (h *ImportHandler) importMultipart(w http.ResponseWriter, r *http.Request, feed domain.Feed) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		if err != nil {
			h.writeResult(w, nil, err)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		name := part.FileName()
		if name == "" {
			name = defaultUploadName
		}
		summary, err := h.importer.Import(r.Context(), feed, name, part)
		_ = part.Close()
		h.writeResult(w, summary, err)
		return
	}
}

func (h *ImportHandler) writeResult(w http.ResponseWriter, summary *domain.ImportSummary, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, domain.ErrUnknownFeed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrShuttingDown):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrNoHeader),
		errors.Is(err, domain.ErrMissingColumns),
		errors.Is(err, domain.ErrEmptyInput):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   err.Error(),
			"summary": summary,
		})
	default:
		log.Printf("[Import] Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   err.Error(),
			"summary": summary,
		})
	}
}

// handleList returns the most recent import batches
// GET /api/imports?limit=50
func (h *ImportHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultImportListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxImportListLimit)
	}

	items, err := h.lister.ListImports(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}
