// Package payment оформляет заказы и применяет события платежной системы.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
)

// Service связывает заказы маркетплейса с платежной системой.
// processor может быть nil: тогда заказы создаются без намерения оплаты.
type Service struct {
	store     storage.Market
	processor Processor
	verifier  *Verifier
}

func NewService(store storage.Market, processor Processor, verifier *Verifier) *Service {
	return &Service{store: store, processor: processor, verifier: verifier}
}

// Checkout резервирует товар, создает заказ и намерение оплаты.
// Если платежная система недоступна, заказ отменяется, а остаток возвращается.
func (s *Service) Checkout(ctx context.Context, buyerID, productID string, quantity int) (*domain.Order, error) {
	if quantity < 1 || quantity > domain.MaxOrderQuantity {
		return nil, domain.Invalidf("quantity must be between 1 and %d", domain.MaxOrderQuantity)
	}
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, domain.NotFound("product")
	}
	if product.SellerID == buyerID {
		return nil, domain.Invalidf("cannot order your own product")
	}

	order, err := s.store.CreateOrder(ctx, &domain.Order{
		BuyerID:        buyerID,
		SellerID:       product.SellerID,
		ProductID:      product.ID,
		Quantity:       quantity,
		UnitPriceCents: product.PriceCents,
		TotalCents:     product.PriceCents * int64(quantity),
		Currency:       product.Currency,
		OrderStatus:    domain.OrderPending,
		PaymentStatus:  domain.PaymentPending,
	})
	if err != nil {
		return nil, err
	}
	if s.processor == nil {
		return order, nil
	}

	intent, err := s.processor.CreateIntent(ctx, order)
	if err == nil {
		err = s.store.SetPaymentIntent(ctx, order.ID, intent.ID)
	}
	if err != nil {
		log.Printf("[payment] order %s: %v", order.ID, err)
		if rbErr := s.store.CancelOrderRestock(ctx, order.ID); rbErr != nil {
			log.Printf("[payment] order %s: failed to cancel after payment error: %v", order.ID, rbErr)
		}
		return nil, fmt.Errorf("create payment for order %s: %w", order.ID, err)
	}
	order.PaymentIntentID = intent.ID
	order.ClientSecret = intent.ClientSecret
	return order, nil
}

// ChangeStatus применяет изменение order_status от имени actorID.
// Отмена заказа в статусе pending возвращает остаток товара.
func (s *Service) ChangeStatus(ctx context.Context, actorID, orderID, next string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	expected, err := domain.CheckStatusChange(order, actorID, next)
	if err != nil {
		return nil, err
	}
	if next == domain.OrderCancelled && expected == domain.OrderPending {
		if err := s.store.CancelOrderRestock(ctx, orderID); err != nil {
			return nil, err
		}
		return s.store.GetOrder(ctx, orderID)
	}
	return s.store.UpdateOrderStatus(ctx, orderID, expected, next)
}

// WebhookResult описывает, что сделала обработка события.
type WebhookResult struct {
	Event     *Event
	Duplicate bool
	Ignored   bool
	Order     *domain.Order
	Changed   bool
}

// HandleWebhook проверяет подпись и применяет событие. Событие
// записывается после успешной обработки, повтор не меняет состояние.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	evt, err := s.verifier.Parse(payload, signature)
	if err != nil {
		return nil, err
	}
	res := &WebhookResult{Event: evt}

	seen, err := s.store.WebhookEventProcessed(ctx, evt.ID)
	if err != nil {
		return nil, err
	}
	if seen {
		res.Duplicate = true
		return res, nil
	}

	if err := s.apply(ctx, res); err != nil {
		return nil, err
	}

	err = s.store.RecordWebhookEvent(ctx, &domain.WebhookEvent{ID: evt.ID, Type: evt.Type})
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}
	return res, nil
}

func (s *Service) apply(ctx context.Context, res *WebhookResult) error {
	evt := res.Event
	status, ok := domain.PaymentStatusForEvent(evt.Type)
	if !ok {
		res.Ignored = true
		return nil
	}
	if evt.OrderID == "" {
		log.Printf("[payment] event %s (%s): intent %s has no order_id", evt.ID, evt.Type, evt.IntentID)
		res.Ignored = true
		return nil
	}

	changed, err := s.store.SetPaymentStatus(ctx, evt.OrderID, status)
	if errors.Is(err, domain.ErrNotFound) {
		// Повторная доставка не поможет, подтверждаем событие
		log.Printf("[payment] event %s: order %s not found", evt.ID, evt.OrderID)
		res.Ignored = true
		return nil
	}
	if err != nil {
		return err
	}
	res.Changed = changed

	order, err := s.store.GetOrder(ctx, evt.OrderID)
	if err != nil {
		return err
	}
	res.Order = order
	return nil
}
