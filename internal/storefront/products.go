package storefront

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Storefront/internal/recommend"
	"Storefront/pkg/kit"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, ok := s.listProducts(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.getProduct(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, defaultTrendingLimit)
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad limit", nil)
		return
	}

	products, ok := s.listProducts(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, recommend.Trending(products, s.market(r), limit))
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, defaultRelatedLimit)
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad limit", nil)
		return
	}

	p, ok := s.getProduct(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	products, ok := s.listProducts(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, recommend.Related(products, p.ID, p.Category, limit))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	limit, ok := queryLimit(r, defaultRecommendLimit)
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad limit", nil)
		return
	}

	products, ok := s.listProducts(w, r)
	if !ok {
		return
	}

	rec := recommend.Recommender{History: sess.Views, DefaultMarket: s.market(r)}
	exclude := splitIDs(r.URL.Query().Get("exclude"))
	kit.WriteJSON(w, http.StatusOK, rec.Recommended(r.Context(), products, exclude, limit))
}
