package store

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterHTTP mounts the read API on a chi router.
func (s *Store) RegisterHTTP(r chi.Router) {
	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/sequences", s.handleListSequences)
	r.Get("/api/v1/sequences/{sequence_id}", s.handleGetSequence)
	r.Get("/healthz", s.handleHealth)
}

// Router returns a standalone router with the read API mounted.
func (s *Store) Router() chi.Router {
	r := chi.NewRouter()
	s.RegisterHTTP(r)
	return r
}

func (s *Store) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	results, err := s.Search(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Store) handleListSequences(w http.ResponseWriter, r *http.Request) {
	seqs, err := s.ListSequences(r.Context())
	if err != nil {
		s.logger.Error("list sequences failed", "err", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(seqs),
		"sequences": seqs,
	})
}

func (s *Store) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sequence_id")
	seq, err := s.GetSequence(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown sequence")
		return
	}
	if err != nil {
		s.logger.Error("get sequence failed", "sequence_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

func (s *Store) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
