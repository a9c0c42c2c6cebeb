package storefront

import (
	"net/http"

	"Storefront/internal/autosave"
	"Storefront/pkg/kit"
)

// handleGetDraft returns the persisted draft. Edits still waiting on the
// debounce timer are not included.
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess.Draft.Load(r.Context()))
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var patch autosave.Draft
	if err := kit.DecodeJSON(w, r, &patch); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	sess.Draft.Save(patch)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleFlushDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Draft.Flush(r.Context())
	kit.WriteJSON(w, http.StatusOK, sess.Draft.Load(r.Context()))
}

func (s *Server) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Draft.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
