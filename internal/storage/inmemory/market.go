package inmemory

import (
	"context"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
)

// === Product Methods ===

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.NewString()
	now := s.tick()
	p.CreatedAt, p.UpdatedAt = now, now
	p.IsActive = true
	s.products[p.ID] = clonePtr(p)
	return clonePtr(p), nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.NotFound("product")
	}
	return clonePtr(p), nil
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter, page storage.Page) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Product
	for _, p := range s.products {
		if filter.SellerID != "" && p.SellerID != filter.SellerID {
			continue
		}
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		result = append(result, clonePtr(p))
	}
	return paginate(result, page, func(a, b *domain.Product) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch storage.ProductPatch) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.products[id]
	if !ok {
		return nil, domain.NotFound("product")
	}
	// Изменения применяются к копии под блокировкой: остаток берется текущий
	updated := *stored
	patch.Apply(&updated)
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.tick()
	*stored = updated
	return clonePtr(stored), nil
}

// === Order Methods ===

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[o.ProductID]
	if !ok || !product.IsActive {
		return nil, domain.NotFound("product")
	}
	if product.Stock < o.Quantity {
		return nil, domain.ErrInsufficientStock
	}
	product.Stock -= o.Quantity

	o.ID = uuid.NewString()
	now := s.tick()
	o.CreatedAt, o.UpdatedAt = now, now
	s.orders[o.ID] = clonePtr(o)
	return clonePtr(o), nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.NotFound("order")
	}
	return clonePtr(o), nil
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter, page storage.Page) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.orders {
		if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.SellerID != "" && o.SellerID != filter.SellerID {
			continue
		}
		result = append(result, clonePtr(o))
	}
	return paginate(result, page, func(a, b *domain.Order) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}), nil
}

func (s *Store) SetPaymentIntent(ctx context.Context, orderID, intentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return domain.NotFound("order")
	}
	o.PaymentIntentID = intentID
	o.UpdatedAt = s.tick()
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, from, to string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.NotFound("order")
	}
	if o.OrderStatus != from {
		return nil, domain.ErrStaleOrder
	}
	o.OrderStatus = to
	o.UpdatedAt = s.tick()
	return clonePtr(o), nil
}

func (s *Store) CancelOrderRestock(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return domain.NotFound("order")
	}
	if o.OrderStatus != domain.OrderPending {
		return domain.ErrStaleOrder
	}
	o.OrderStatus = domain.OrderCancelled
	o.UpdatedAt = s.tick()
	if p, ok := s.products[o.ProductID]; ok {
		p.Stock += o.Quantity
	}
	return nil
}

func (s *Store) SetPaymentStatus(ctx context.Context, orderID, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.NotFound("order")
	}
	if o.PaymentStatus == status {
		return false, nil
	}
	o.PaymentStatus = status
	o.UpdatedAt = s.tick()
	return true, nil
}

// === Webhook Event Methods ===

func (s *Store) WebhookEventProcessed(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.webhookEvents[id]
	return ok, nil
}

func (s *Store) RecordWebhookEvent(ctx context.Context, e *domain.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhookEvents[e.ID]; ok {
		return domain.Conflict("webhook event already recorded")
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = s.tick()
	}
	s.webhookEvents[e.ID] = clonePtr(e)
	return nil
}

// === Wishlist Methods ===

func (s *Store) AddWishlistItem(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return domain.NotFound("product")
	}
	key := pairKey{userID, productID}
	if _, ok := s.wishlist[key]; ok {
		return domain.Conflict("product is already in the wishlist")
	}
	s.wishlist[key] = &domain.WishlistItem{UserID: userID, ProductID: productID, CreatedAt: s.tick()}
	return nil
}

func (s *Store) RemoveWishlistItem(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{userID, productID}
	if _, ok := s.wishlist[key]; !ok {
		return domain.NotFound("wishlist item")
	}
	delete(s.wishlist, key)
	return nil
}

func (s *Store) ListWishlist(ctx context.Context, userID string) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*domain.WishlistItem
	for k, item := range s.wishlist {
		if k.a == userID {
			items = append(items, item)
		}
	}
	items = paginate(items, storage.Page{Limit: storage.MaxLimit}, func(a, b *domain.WishlistItem) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})

	products := make([]*domain.Product, 0, len(items))
	for _, item := range items {
		if p, ok := s.products[item.ProductID]; ok {
			products = append(products, clonePtr(p))
		}
	}
	return products, nil
}
