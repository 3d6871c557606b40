package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wikigit/internal/wiki"
)

func (s *Server) handleListMedia(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		files, err := s.service.ListMedia(r.Context(), repoID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
	}
}

// handleUploadMedia accepts a multipart form with a single "file" field.
func (s *Server) handleUploadMedia(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		// Cap the request before parsing; the service re-checks the
		// decoded size.
		r.Body = http.MaxBytesReader(w, r.Body, wiki.MaxMediaSize+(1<<20))
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, fmt.Errorf("%w: multipart field \"file\" required: %v", wiki.ErrValidation, err))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, fmt.Errorf("%w: reading upload: %v", wiki.ErrValidation, err))
			return
		}
		media, err := s.service.UploadMedia(r.Context(), repoID, header.Filename, data, userEmail(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, media)
	}
}

func (s *Server) handleDeleteMedia(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.service.DeleteMedia(r.Context(), repoID, chi.URLParam(r, "filename"), userEmail(r)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
