// Portal File Vault - Upload Verification and File Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/govportal/filevault

package api

import (
	"errors"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/govportal/filevault/internal/filestore"
	"github.com/govportal/filevault/internal/uploads"
)

const (
	// uploadFormField is the multipart field carrying the file.
	uploadFormField = "file"

	// bucketFormField optionally names the bucket.
	bucketFormField = "bucket"

	// multipartOverhead allows for boundaries and part headers on top of
	// the file size limit.
	multipartOverhead int64 = 1 << 20

	// multipartMemory is how much of a form is held in memory before
	// spilling to temporary files.
	multipartMemory int64 = 8 << 20
)

// UploadFile accepts a multipart upload and returns the unscanned record.
// POST /api/v1/files
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	maxSize := h.files.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"Upload exceeds the maximum size of "+humanize.IBytes(uint64(maxSize)), nil) //nolint:gosec // G115: maxSize is positive
			return
		}
		respondError(w, r, http.StatusBadRequest, codeValidation, "Request must be multipart/form-data", err)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // Best effort removal of spilled form parts

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, "No file provided in field \""+uploadFormField+"\"", nil)
		return
	}
	defer file.Close()

	rec, err := h.files.Save(r.Context(), r.FormValue(bucketFormField), header.Filename, header.Header.Get("Content-Type"), file)
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		respondError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, err.Error(), nil)
		return
	case errors.Is(err, uploads.ErrInvalidBucket):
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Failed to store upload", err)
		return
	}

	respondSuccess(w, http.StatusCreated, rec)
}

// GetFile returns one file record.
// GET /api/v1/files/{id}
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.files.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, filestore.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, codeNotFound, "File not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Failed to load file record", err)
		return
	}

	respondSuccess(w, http.StatusOK, rec)
}

// DeleteFile removes a file, its derivatives and its record.
// DELETE /api/v1/files/{id}
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	err := h.files.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, filestore.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, codeNotFound, "File not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeInternal, "Failed to delete file", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
