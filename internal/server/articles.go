package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"wikigit/internal/wiki"
)

type createArticleRequest struct {
	Path    string `json:"path"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

type updateArticleRequest struct {
	Content string `json:"content"`
}

type moveRequest struct {
	NewPath string `json:"new_path"`
}

func (s *Server) handleListArticles(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		articles, err := s.service.ListArticles(r.Context(), repoID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, articles)
	}
}

func (s *Server) handleCreateArticle(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req createArticleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		article, err := s.service.CreateArticle(r.Context(), repoID, req.Path, req.Title, req.Content, userEmail(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, article)
	}
}

// handleGetArticleForms serves the three GET forms that share the wildcard:
// the article itself, its history, and its content at a past commit.
func (s *Server) handleGetArticleForms(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		raw := chi.URLParam(r, "*")

		if path, ok := strings.CutSuffix(raw, "/history"); ok && path != "" {
			limit := queryInt(r, "limit", 50)
			history, err := s.service.ArticleHistory(r.Context(), repoID, path, limit)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, history)
			return
		}

		if path, sha, ok := cutAtRevision(raw); ok {
			article, err := s.service.ArticleAtCommit(r.Context(), repoID, path, sha)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, article)
			return
		}

		article, err := s.service.GetArticle(r.Context(), repoID, raw)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, article)
	}
}

func (s *Server) handleUpdateArticle(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req updateArticleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		article, err := s.service.UpdateArticle(r.Context(), repoID, chi.URLParam(r, "*"), req.Content, userEmail(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, article)
	}
}

func (s *Server) handleDeleteArticle(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.service.DeleteArticle(r.Context(), repoID, chi.URLParam(r, "*"), userEmail(r)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleMoveArticle serves POST .../articles/{path}/move.
func (s *Server) handleMoveArticle(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		path, ok := strings.CutSuffix(chi.URLParam(r, "*"), "/move")
		if !ok || path == "" {
			writeError(w, fmt.Errorf("%w: unknown article action", wiki.ErrValidation))
			return
		}
		var req moveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		article, err := s.service.MoveArticle(r.Context(), repoID, path, req.NewPath, userEmail(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, article)
	}
}

func (s *Server) handleGetTree(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		tree, err := s.service.GetTree(r.Context(), repoID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

func (s *Server) handleCreateDirectory(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req struct {
			Path string `json:"path"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.service.CreateDirectory(r.Context(), repoID, req.Path, userEmail(r)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
	}
}

func (s *Server) handleDeleteDirectory(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.service.DeleteDirectory(r.Context(), repoID, chi.URLParam(r, "*"), userEmail(r)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleMoveDirectory(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		path, ok := strings.CutSuffix(chi.URLParam(r, "*"), "/move")
		if !ok || path == "" {
			writeError(w, fmt.Errorf("%w: unknown directory action", wiki.ErrValidation))
			return
		}
		var req moveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.service.MoveDirectory(r.Context(), repoID, path, req.NewPath, userEmail(r)); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"path": req.NewPath})
	}
}

// handleGetFile serves non-markdown files (images, attachments) verbatim.
func (s *Server) handleGetFile(resolve repoResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID, err := resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := s.service.ReadRawFile(r.Context(), repoID, chi.URLParam(r, "*"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// cutAtRevision splits ".../{path}/at/{sha}" into its parts.
func cutAtRevision(raw string) (path, sha string, ok bool) {
	i := strings.LastIndex(raw, "/at/")
	if i <= 0 {
		return "", "", false
	}
	path, sha = raw[:i], raw[i+len("/at/"):]
	if sha == "" || strings.Contains(sha, "/") {
		return "", "", false
	}
	return path, sha, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
