package storefront

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"Storefront/internal/auth"
	"Storefront/internal/catalog"
	"Storefront/internal/kv"
	"Storefront/internal/order"
	"Storefront/internal/session"
	"Storefront/pkg/kit"
)

const (
	defaultTrendingLimit  = 10
	defaultRelatedLimit   = 4
	defaultRecommendLimit = 10
	maxLimit              = 100
)

type Server struct {
	Catalog       catalog.Store
	Sessions      *session.Registry
	Orders        *order.Service
	Storage       kv.Store
	DefaultMarket string
	Log           *zap.Logger
}

func (s *Server) log() *zap.Logger { return kit.OrNop(s.Log) }

// session resolves the caller's session and answers 401 when there is none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no user", nil)
		return nil, false
	}
	return s.Sessions.Get(u.ID), true
}

func (s *Server) market(r *http.Request) string {
	if m := strings.TrimSpace(r.URL.Query().Get("market")); m != "" {
		return strings.ToLower(m)
	}
	return s.DefaultMarket
}

// queryLimit parses ?limit=. Negative values mean "nothing"; huge values are
// capped.
func queryLimit(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return min(max(n, 0), maxLimit), true
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) ([]catalog.Product, bool) {
	products, err := s.Catalog.ListSortedByID(r.Context())
	if err != nil {
		s.log().Error("list products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return nil, false
	}
	return products, true
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request, id string) (catalog.Product, bool) {
	p, ok, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		s.log().Error("get product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return catalog.Product{}, false
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return catalog.Product{}, false
	}
	return p, true
}
