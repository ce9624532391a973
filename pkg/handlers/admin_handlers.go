package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"media-portfolio/pkg/models"
	"media-portfolio/pkg/response"
	"media-portfolio/pkg/services"
	"media-portfolio/pkg/storage"
)

// multipartMemory is how much of an upload form is held in memory before
// spilling to temporary files
const multipartMemory = 32 << 20

// GetMetadataHandler returns the metadata document together with how it was read
func (h *Handler) GetMetadataHandler(w http.ResponseWriter, r *http.Request) {
	res := h.svc.FetchMetadata(r.Context())
	if res.Status == services.MetadataUnavailable {
		h.logger.Errorw("Metadata document unavailable", "error", res.Err)
		response.Error(w, http.StatusServiceUnavailable, "metadata document unavailable")
		return
	}
	response.OK(w, map[string]interface{}{
		"status":   res.Status.String(),
		"document": res.DocumentOrEmpty(),
	})
}

// PutMetadataHandler overwrites the metadata document with the request body
func (h *Handler) PutMetadataHandler(w http.ResponseWriter, r *http.Request) {
	doc := models.NewMetadataDocument()
	if err := json.NewDecoder(r.Body).Decode(doc); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.svc.UpdateMediaMetadata(r.Context(), doc); err != nil {
		h.writeError(w, err)
		return
	}
	doc.Normalize()
	response.OK(w, doc)
}

// UploadHandler accepts a multipart form with file, title and description
// fields and stores the file in collection c
func (h *Handler) UploadHandler(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, services.MaxSize(c)+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, services.ErrFileTooLarge.Error())
				return
			}
			response.BadRequest(w, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, "file field is required")
			return
		}
		defer file.Close()

		h.logger.Infow("Upload received", "collection", c, "filename", header.Filename, "size", header.Size)

		result, err := h.svc.Upload(r.Context(), c, services.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}, r.FormValue("title"), r.FormValue("description"), nil)
		if err != nil {
			h.writeError(w, err)
			return
		}
		response.Created(w, result)
	}
}

// UpdateEntryHandler edits the title and description of one media item
func (h *Handler) UpdateEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key         string `json:"key"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	entry, err := h.svc.UpdateEntry(r.Context(), req.Key, req.Title, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, entry)
}

// DeleteMediaHandler deletes a media item with its metadata entry and thumbnail
func (h *Handler) DeleteMediaHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.BadRequest(w, "key is required")
		return
	}

	h.logger.Infow("Deleting media", "key", key)
	if err := h.svc.DeleteMedia(r.Context(), key); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"deleted": key})
}

// ScanHandler rebuilds the metadata document from the bucket contents. With
// merge set, existing titles and descriptions are kept.
func (h *Handler) ScanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Merge bool `json:"merge"`
	}
	if !decodeOptional(w, r, &req) {
		return
	}

	h.logger.Infow("Scanning bucket", "merge", req.Merge)

	var doc *models.MetadataDocument
	var err error
	if req.Merge {
		doc, err = h.svc.ScanAndMergeMetadata(r.Context())
	} else {
		doc, err = h.svc.ScanAndCreateMetadata(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, doc)
}

// GenerateThumbnailHandler renders the thumbnail of a single picture
func (h *Handler) GenerateThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		response.BadRequest(w, "key is required")
		return
	}

	h.logger.Infow("Generating thumbnail", "key", req.Key)
	if err := h.svc.GenerateThumbnail(r.Context(), req.Key); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"thumbnail": services.ThumbnailKey(req.Key)})
}

// ClearThumbnailHandler removes the thumbnail of a single picture
func (h *Handler) ClearThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		response.BadRequest(w, "key is required")
		return
	}

	h.logger.Infow("Clearing thumbnail", "key", req.Key)
	if err := h.svc.ClearThumbnail(r.Context(), req.Key); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"cleared": services.ThumbnailKey(req.Key)})
}

// BulkGenerateThumbnailsHandler renders missing thumbnails, or all of them when
// force is set
func (h *Handler) BulkGenerateThumbnailsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force"`
	}
	if !decodeOptional(w, r, &req) {
		return
	}

	h.logger.Infow("Bulk generating thumbnails", "force", req.Force)

	processed, failed, err := h.svc.BulkGenerateThumbnails(r.Context(), req.Force, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"processed": processed,
		"errors":    failed,
	})
}

// BulkClearThumbnailsHandler removes every stored thumbnail
func (h *Handler) BulkClearThumbnailsHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.Infow("Bulk clearing thumbnails")

	deleted, err := h.svc.BulkClearThumbnails(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"deleted": deleted})
}

// decodeOptional decodes a JSON body into v, treating an empty body as the
// zero request. It writes a 400 and returns false on malformed input.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	response.BadRequest(w, "invalid request body")
	return false
}

// writeError maps service errors onto HTTP statuses
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrFileTooLarge),
		errors.Is(err, services.ErrUnsupportedType),
		errors.Is(err, services.ErrEmptyFile),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidFilename),
		errors.Is(err, services.ErrInvalidCollection),
		errors.Is(err, services.ErrInvalidKey):
		response.BadRequest(w, err.Error())
	case errors.Is(err, services.ErrMediaNotFound), errors.Is(err, storage.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, services.ErrMetadataConflict):
		response.Conflict(w, err.Error())
	default:
		h.logger.Errorw("Request failed", "error", err)
		response.InternalError(w)
	}
}
