package cart

import (
	"context"
	"time"

	"musshk-backend/internal/domain"
	"musshk-backend/internal/notify"
)

type Service struct {
	repo      cartRepo
	ttl       time.Duration
	publisher notify.Publisher
}

type cartRepo interface {
	GetOpenBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, item domain.CartItem, ttl time.Duration) (*domain.Cart, error)
	SetItemQuantity(ctx context.Context, sessionID, itemRef string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, itemRef string) (*domain.Cart, error)
	Delete(ctx context.Context, sessionID string) error
	ListByStatus(ctx context.Context, status string) ([]domain.Cart, error)
	ListAll(ctx context.Context) ([]domain.Cart, error)
}

func New(repo cartRepo, ttl time.Duration, publisher notify.Publisher) *Service {
	if publisher == nil {
		publisher = notify.Noop{}
	}
	return &Service{repo: repo, ttl: ttl, publisher: publisher}
}

type AddItemInput struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	UnitPrice int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image"`
}

// Get returns the open cart for the session, or nil when the session has
// none (including when only an expired, unreclaimed one remains). Reading
// never creates a cart.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := s.repo.GetOpenBySession(ctx, sessionID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if cart.Expired(time.Now()) {
		return nil, nil
	}
	return cart, nil
}

func (s *Service) AddItem(ctx context.Context, sessionID string, in AddItemInput) (*domain.Cart, error) {
	if err := validateAddItem(in); err != nil {
		return nil, err
	}
	item := domain.CartItem{
		ProductID: in.ProductID,
		Name:      in.Name,
		Size:      in.Size,
		UnitPrice: in.UnitPrice,
		Quantity:  in.Quantity,
		Image:     in.Image,
	}
	cart, err := s.repo.AddItem(ctx, sessionID, item, s.ttl)
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, sessionID, cart.ID)
	return cart, nil
}

// SetItemQuantity updates the matched line; a quantity below one removes it.
func (s *Service) SetItemQuantity(ctx context.Context, sessionID, itemRef string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, sessionID, itemRef)
	}
	cart, err := s.repo.SetItemQuantity(ctx, sessionID, itemRef, quantity)
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, sessionID, cart.ID)
	return cart, nil
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, itemRef string) (*domain.Cart, error) {
	cart, err := s.repo.RemoveItem(ctx, sessionID, itemRef)
	if err != nil {
		return nil, err
	}
	s.notifyChanged(ctx, sessionID, cart.ID)
	return cart, nil
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.notifyChanged(ctx, sessionID, "")
	return nil
}

// notifyChanged is best-effort; a dropped notification only delays a UI
// refresh.
func (s *Service) notifyChanged(ctx context.Context, sessionID, cartID string) {
	_ = s.publisher.Publish(ctx, notify.Event{
		Type:      notify.EventCartChanged,
		SessionID: sessionID,
		CartID:    cartID,
	})
}

func (s *Service) ListPending(ctx context.Context) ([]domain.Cart, error) {
	return s.repo.ListByStatus(ctx, domain.CartStatusPending)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Cart, error) {
	return s.repo.ListAll(ctx)
}

func validateAddItem(in AddItemInput) error {
	switch {
	case in.ProductID == "":
		return domain.NewValidationError("productId", "productId is required")
	case in.Name == "":
		return domain.NewValidationError("name", "name is required")
	case in.Size == "":
		return domain.NewValidationError("size", "size is required")
	case in.UnitPrice <= 0:
		return domain.NewValidationError("price", "price must be positive")
	case in.Quantity < 1:
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	}
	return nil
}
