package storefront

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/internal/order"
	"Storefront/pkg/kit"
)

type placeOrderReq struct {
	Items  []order.Item `json:"items"`
	Market string       `json:"market,omitempty"`
}

// handlePlaceOrder turns the caller's checkout draft into an order. Pending
// draft edits are flushed first; the stored draft is deleted once the order
// is stored. Edits saved while the order was being placed survive and start
// the next draft.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req placeOrderReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	market := strings.ToLower(strings.TrimSpace(req.Market))
	if market == "" {
		market = s.DefaultMarket
	}

	sess.Draft.Flush(r.Context())
	draft := sess.Draft.Load(r.Context())

	o, err := s.Orders.Place(r.Context(), order.PlaceRequest{
		UserID: sess.UserID,
		Market: market,
		Items:  req.Items,
		Draft:  draft,
	})
	if err != nil {
		s.writePlaceError(w, r, err)
		return
	}

	sess.Draft.ClearSaved(r.Context())
	kit.WriteJSON(w, http.StatusCreated, o)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	o, found, err := s.Orders.Store.Get(r.Context(), id)
	if err != nil {
		s.log().Error("store get order failed", zap.Error(err), zap.String("order_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	if o.UserID != sess.UserID {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) writePlaceError(w http.ResponseWriter, r *http.Request, err error) {
	var draftErr *order.DraftError
	switch {
	case errors.As(err, &draftErr):
		kit.WriteError(w, r, http.StatusBadRequest, order.ErrIncompleteDraft.Error(),
			map[string]any{"missing": draftErr.Missing})
	case errors.Is(err, order.ErrNoItems),
		errors.Is(err, order.ErrBadItem),
		errors.Is(err, order.ErrDuplicateItem),
		errors.Is(err, order.ErrInvalidProduct),
		errors.Is(err, order.ErrTotalOverflow):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, order.ErrUnavailable),
		errors.Is(err, order.ErrOutOfStock):
		kit.WriteError(w, r, http.StatusConflict, err.Error(), nil)
	case isTimeoutErr(err):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.log().Error("place order failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
