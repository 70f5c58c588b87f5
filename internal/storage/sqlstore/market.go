package sqlstore

import (
	"context"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// === Product Methods ===

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	p.IsActive = true
	if err := s.conn(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := s.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, "product", "")
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter, page storage.Page) ([]*domain.Product, error) {
	query := s.conn(ctx).Model(&domain.Product{})
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	var result []*domain.Product
	err := paged(query.Order("created_at DESC"), page).Find(&result).Error
	return result, err
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch storage.ProductPatch) (*domain.Product, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Product
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return translate(err, "product", "")
		}
		patch.Apply(&current)
		if err := current.Validate(); err != nil {
			return err
		}
		// Пишем только заданные колонки: stock, списанный заказом, не затирается
		return tx.Model(&domain.Product{}).Where("id = ?", id).Updates(productColumns(patch, &current)).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// productColumns собирает колонки для заданных полей patch. Значения берутся
// из p, уже нормализованного Validate.
func productColumns(patch storage.ProductPatch, p *domain.Product) map[string]any {
	cols := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		cols["title"] = p.Title
	}
	if patch.Description != nil {
		cols["description"] = p.Description
	}
	if patch.PriceCents != nil {
		cols["price_cents"] = p.PriceCents
	}
	if patch.Currency != nil {
		cols["currency"] = p.Currency
	}
	if patch.Stock != nil {
		cols["stock"] = p.Stock
	}
	if patch.ImageURLs != nil {
		cols["image_urls"] = p.ImageURLs
	}
	if patch.IsActive != nil {
		cols["is_active"] = p.IsActive
	}
	return cols
}

// === Order Methods ===

func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.Product{}, "id = ? AND is_active = ?", o.ProductID, true)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("product")
		}

		// Условное списание остатка вместо чтения и записи
		res := tx.Model(&domain.Product{}).
			Where("id = ? AND stock >= ?", o.ProductID, o.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", o.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInsufficientStock
		}

		o.ID = uuid.NewString()
		return tx.Create(o).Error
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if err := s.conn(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err, "order", "")
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter, page storage.Page) ([]*domain.Order, error) {
	query := s.conn(ctx).Model(&domain.Order{})
	if filter.BuyerID != "" {
		query = query.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	var result []*domain.Order
	err := paged(query.Order("created_at DESC"), page).Find(&result).Error
	return result, err
}

func (s *Store) SetPaymentIntent(ctx context.Context, orderID, intentID string) error {
	res := s.conn(ctx).Model(&domain.Order{}).Where("id = ?", orderID).Updates(map[string]any{
		"payment_intent_id": intentID,
		"updated_at":        time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("order")
	}
	return nil
}

// orderMissOrStale различает отсутствующий заказ и проигранное условное обновление.
func orderMissOrStale(db *gorm.DB, orderID string) error {
	found, err := exists(db, &domain.Order{}, "id = ?", orderID)
	if err != nil {
		return err
	}
	if !found {
		return domain.NotFound("order")
	}
	return domain.ErrStaleOrder
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, from, to string) (*domain.Order, error) {
	db := s.conn(ctx)
	res := db.Model(&domain.Order{}).Where("id = ? AND order_status = ?", orderID, from).Updates(map[string]any{
		"order_status": to,
		"updated_at":   time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, orderMissOrStale(db, orderID)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *Store) CancelOrderRestock(ctx context.Context, orderID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var o domain.Order
		if err := tx.First(&o, "id = ?", orderID).Error; err != nil {
			return translate(err, "order", "")
		}
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND order_status = ?", orderID, domain.OrderPending).
			Updates(map[string]any{"order_status": domain.OrderCancelled, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrStaleOrder
		}
		return tx.Model(&domain.Product{}).Where("id = ?", o.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", o.Quantity)).Error
	})
}

func (s *Store) SetPaymentStatus(ctx context.Context, orderID, status string) (bool, error) {
	db := s.conn(ctx)
	res := db.Model(&domain.Order{}).
		Where("id = ? AND payment_status <> ?", orderID, status).
		Updates(map[string]any{"payment_status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	found, err := exists(db, &domain.Order{}, "id = ?", orderID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, domain.NotFound("order")
	}
	return false, nil
}

// === Webhook Event Methods ===

func (s *Store) WebhookEventProcessed(ctx context.Context, id string) (bool, error) {
	return exists(s.conn(ctx), &domain.WebhookEvent{}, "id = ?", id)
}

func (s *Store) RecordWebhookEvent(ctx context.Context, e *domain.WebhookEvent) error {
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}
	return translate(s.conn(ctx).Create(e).Error, "webhook event", "webhook event already recorded")
}

// === Wishlist Methods ===

func (s *Store) AddWishlistItem(ctx context.Context, userID, productID string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &domain.Product{}, "id = ?", productID)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("product")
		}
		err = tx.Create(&domain.WishlistItem{UserID: userID, ProductID: productID}).Error
		return translate(err, "wishlist item", "product is already in the wishlist")
	})
}

func (s *Store) RemoveWishlistItem(ctx context.Context, userID, productID string) error {
	res := s.conn(ctx).Delete(&domain.WishlistItem{}, "user_id = ? AND product_id = ?", userID, productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("wishlist item")
	}
	return nil
}

func (s *Store) ListWishlist(ctx context.Context, userID string) ([]*domain.Product, error) {
	var products []*domain.Product
	err := s.conn(ctx).Select("products.*").
		Joins("JOIN wishlist_items ON wishlist_items.product_id = products.id").
		Where("wishlist_items.user_id = ?", userID).
		Order("wishlist_items.created_at DESC").
		Limit(storage.MaxLimit).
		Find(&products).Error
	return products, err
}
