package api

import (
	"net/http"

	"github.com/okian/collegefinder/internal/domain/model"
)

// handleListColleges handles GET /v1/colleges.
func (s *Server) handleListColleges(w http.ResponseWriter, r *http.Request) {
	colleges, err := s.deps.Colleges(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if colleges == nil {
		colleges = []model.College{}
	}
	writeJSON(w, http.StatusOK, colleges)
}

// handleGetCollege handles GET /v1/colleges/{id}.
func (s *Server) handleGetCollege(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.College(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handlePutCollege handles PUT /v1/colleges/{id}. The path id wins over any
// id in the body.
func (s *Server) handlePutCollege(w http.ResponseWriter, r *http.Request) {
	var c model.College
	if err := decode(w, r, &c); err != nil {
		s.fail(w, r, err)
		return
	}
	c.ID = r.PathValue("id")
	saved, err := s.deps.UpsertCollege(r.Context(), c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleDeleteCollege handles DELETE /v1/colleges/{id}.
func (s *Server) handleDeleteCollege(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.DeleteCollege(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
