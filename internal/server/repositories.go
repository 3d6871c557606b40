package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"wikigit/internal/wiki"
)

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.service.ListRepositories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) handleGetRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := s.service.GetRepository(r.Context(), chi.URLParam(r, "repoID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) handleAddRepository(w http.ResponseWriter, r *http.Request) {
	var req wiki.NewRepository
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	repo, err := s.service.AddRepository(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) handleUpdateRepository(w http.ResponseWriter, r *http.Request) {
	var upd wiki.RepositoryUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}
	repo, err := s.service.UpdateRepository(r.Context(), chi.URLParam(r, "repoID"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) handleRemoveRepository(w http.ResponseWriter, r *http.Request) {
	deleteClone := r.URL.Query().Get("delete_clone") == "true"
	if err := s.service.RemoveRepository(r.Context(), chi.URLParam(r, "repoID"), deleteClone); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncRepository(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.SyncRepository(r.Context(), chi.URLParam(r, "repoID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRepositoryStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.RepositoryStatus(r.Context(), chi.URLParam(r, "repoID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
