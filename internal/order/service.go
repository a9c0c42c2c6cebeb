package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Storefront/internal/autosave"
	"Storefront/internal/catalog"
	"Storefront/pkg/kit"
)

var (
	ErrNoItems         = errors.New("items required")
	ErrBadItem         = errors.New("bad item")
	ErrDuplicateItem   = errors.New("duplicate product_id")
	ErrInvalidProduct  = errors.New("invalid product_id")
	ErrUnavailable     = errors.New("product unavailable")
	ErrOutOfStock      = errors.New("insufficient stock")
	ErrTotalOverflow   = errors.New("total overflow")
	ErrIncompleteDraft = errors.New("checkout details incomplete")
)

// DraftError lists the checkout fields an order still needs.
type DraftError struct {
	Missing []string
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIncompleteDraft, strings.Join(e.Missing, ", "))
}

func (e *DraftError) Is(target error) bool { return target == ErrIncompleteDraft }

type PlaceRequest struct {
	UserID string
	Market string
	Items  []Item
	Draft  autosave.Draft
}

type Service struct {
	Store   Store
	Catalog catalog.Store
	Log     *zap.Logger
	Now     func() time.Time
}

// Place prices the items against the catalog, checks the checkout draft is
// complete and stores a new order.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (Order, error) {
	if len(req.Items) == 0 {
		return Order{}, ErrNoItems
	}

	delivery, err := deliveryFromDraft(req.Draft)
	if err != nil {
		return Order{}, err
	}

	items, total, err := s.calculateTotal(ctx, req.Market, req.Items)
	if err != nil {
		return Order{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	o := Order{
		ID:         "o_" + uuid.NewString(),
		UserID:     req.UserID,
		Items:      items,
		TotalCents: total,
		Status:     StatusNew,
		Delivery:   delivery,
		CreatedAt:  now().UTC(),
	}

	if err := s.Store.Create(ctx, o); err != nil {
		return Order{}, fmt.Errorf("store order: %w", err)
	}

	kit.OrNop(s.Log).Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int64("total_cents", o.TotalCents),
	)
	return o, nil
}

func (s *Service) calculateTotal(ctx context.Context, market string, in []Item) ([]Item, int64, error) {
	seen := make(map[string]struct{}, len(in))
	items := make([]Item, 0, len(in))
	var total int64

	for _, it := range in {
		pid := strings.TrimSpace(it.ProductID)
		if it.Qty <= 0 || pid == "" {
			return nil, 0, ErrBadItem
		}
		if _, dup := seen[pid]; dup {
			return nil, 0, ErrDuplicateItem
		}
		seen[pid] = struct{}{}

		p, ok, err := s.Catalog.Get(ctx, pid)
		if err != nil {
			return nil, 0, fmt.Errorf("catalog get %s: %w", pid, err)
		}
		if !ok {
			return nil, 0, ErrInvalidProduct
		}
		if !p.Active {
			return nil, 0, ErrUnavailable
		}
		if p.StockFor(market) < it.Qty {
			return nil, 0, ErrOutOfStock
		}

		line := p.PriceCents * int64(it.Qty)
		if line < 0 || total > math.MaxInt64-line {
			return nil, 0, ErrTotalOverflow
		}
		total += line
		items = append(items, Item{ProductID: pid, Qty: it.Qty})
	}

	return items, total, nil
}

func deliveryFromDraft(d autosave.Draft) (Delivery, error) {
	var (
		out     Delivery
		missing []string
	)

	if d.PaymentMethod == nil || strings.TrimSpace(*d.PaymentMethod) == "" {
		missing = append(missing, "paymentMethod")
	} else {
		out.PaymentMethod = *d.PaymentMethod
	}

	out.HomeDelivery = d.IsHomeDelivery != nil && *d.IsHomeDelivery
	if out.HomeDelivery {
		a := d.Address
		if a == nil {
			a = &autosave.Address{}
		}
		required := []struct{ field, value string }{
			{"address.street", a.Street},
			{"address.city", a.City},
			{"address.phone", a.Phone},
		}
		for _, r := range required {
			if strings.TrimSpace(r.value) == "" {
				missing = append(missing, r.field)
			}
		}
		out.Street, out.City, out.PostalCode = a.Street, a.City, a.PostalCode
		out.Phone, out.Instructions = a.Phone, a.Instructions
	} else {
		if d.PickupPointID == nil || strings.TrimSpace(*d.PickupPointID) == "" {
			missing = append(missing, "pickupPointId")
		} else {
			out.PickupPointID = *d.PickupPointID
		}
	}

	if len(missing) > 0 {
		return Delivery{}, &DraftError{Missing: missing}
	}
	return out, nil
}
