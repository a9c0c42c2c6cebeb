package storefront

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"Storefront/internal/history"
	"Storefront/pkg/kit"
)

type recordViewReq struct {
	ProductID string `json:"product_id"`
}

type recordSearchReq struct {
	Query string `json:"query"`
}

func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess.Views.List(r.Context()))
}

// handleRecordView stores a product view tagged with the product's category,
// which is what recommendations match on.
func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req recordViewReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	id := strings.TrimSpace(req.ProductID)
	if id == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "product_id required", nil)
		return
	}

	p, ok := s.getProduct(w, r, id)
	if !ok {
		return
	}

	sess.Views.Append(r.Context(), p.ID, p.Category)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearViews(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Views.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Views.Remove(r.Context(), chi.URLParam(r, "key"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSearches(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, sess.Searches.List(r.Context()))
}

func (s *Server) handleRecordSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req recordSearchReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	q := history.NormalizeQuery(req.Query)
	if q == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "query required", nil)
		return
	}

	sess.Searches.Append(r.Context(), q, "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSearches(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Searches.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveSearch normalizes the path key the same way queries are stored,
// so "Red  Shoes" removes "red shoes".
func (s *Server) handleRemoveSearch(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Searches.Remove(r.Context(), history.NormalizeQuery(chi.URLParam(r, "key")))
	w.WriteHeader(http.StatusNoContent)
}
