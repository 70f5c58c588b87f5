package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/payment"
	"github.com/UkralStul/ecosocial/internal/realtime"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/go-chi/chi/v5"
)

const maxWebhookBytes = 64 << 10

// === Product Handlers ===

type productRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	PriceCents  *int64    `json:"price_cents"`
	Currency    *string   `json:"currency"`
	Stock       *int      `json:"stock"`
	ImageURLs   *[]string `json:"image_urls"`
	IsActive    *bool     `json:"is_active"`
}

func (req productRequest) patch() storage.ProductPatch {
	return storage.ProductPatch{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Stock:       req.Stock,
		ImageURLs:   req.ImageURLs,
		IsActive:    req.IsActive,
	}
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := &domain.Product{SellerID: currentUser(r).ID, Currency: s.currency}
	req.patch().Apply(p)
	created, err := s.store.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := storage.ProductFilter{SellerID: r.URL.Query().Get("seller_id")}
	// Продавец видит и снятые с продажи товары
	if viewer := currentUser(r); viewer != nil && filter.SellerID == viewer.ID {
		filter.IncludeInactive = true
	}
	products, err := s.store.ListProducts(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if viewer := currentUser(r); !p.IsActive && (viewer == nil || viewer.ID != p.SellerID) {
		writeError(w, r, domain.NotFound("product"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// sellerProduct загружает товар текущего продавца.
func (s *Server) sellerProduct(r *http.Request) (*domain.Product, error) {
	p, err := s.store.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		return nil, err
	}
	if p.SellerID != currentUser(r).ID {
		return nil, domain.Forbidden("only the seller can modify this product")
	}
	return p, nil
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.sellerProduct(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.UpdateProduct(r.Context(), p.ID, req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deactivateProduct снимает товар с продажи, существующие заказы остаются.
func (s *Server) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.sellerProduct(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inactive := false
	if _, err := s.store.UpdateProduct(r.Context(), p.ID, storage.ProductPatch{IsActive: &inactive}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Wishlist Handlers ===

type wishlistEvent struct {
	Action    string `json:"action"`
	ProductID string `json:"product_id"`
}

func (s *Server) listWishlist(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListWishlist(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) addToWishlist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	productID := chi.URLParam(r, "productID")
	if err := s.store.AddWishlistItem(r.Context(), user.ID, productID); err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.Publish(user.ID, realtime.Event{Type: realtime.EventWishlist, Data: wishlistEvent{Action: "added", ProductID: productID}})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	productID := chi.URLParam(r, "productID")
	if err := s.store.RemoveWishlistItem(r.Context(), user.ID, productID); err != nil {
		writeError(w, r, err)
		return
	}
	s.hub.Publish(user.ID, realtime.Event{Type: realtime.EventWishlist, Data: wishlistEvent{Action: "removed", ProductID: productID}})
	w.WriteHeader(http.StatusNoContent)
}

// === Order Handlers ===

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, domain.Invalidf("product_id is required"))
		return
	}
	ctx := r.Context()
	buyer := currentUser(r)
	order, err := s.payments.Checkout(ctx, buyer.ID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.notify(ctx, &domain.Notification{
		UserID:   order.SellerID,
		ActorID:  buyer.ID,
		Type:     domain.NotificationOrder,
		EntityID: order.ID,
		Message:  buyer.Username + " placed an order",
	})
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user := currentUser(r)
	var filter storage.OrderFilter
	switch role := r.URL.Query().Get("role"); role {
	case "", "buyer":
		filter.BuyerID = user.ID
	case "seller":
		filter.SellerID = user.ID
	default:
		writeError(w, r, domain.Invalidf("role must be buyer or seller"))
		return
	}
	orders, err := s.store.ListOrders(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.store.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user := currentUser(r); user.ID != order.BuyerID && user.ID != order.SellerID {
		writeError(w, r, domain.Forbidden("only the buyer or seller can view this order"))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// updateOrder меняет order_status. payment_status клиенту недоступен.
func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderStatus   *string `json:"order_status"`
		PaymentStatus *string `json:"payment_status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PaymentStatus != nil {
		writeError(w, r, domain.Invalidf("payment_status is managed by the payment processor"))
		return
	}
	if req.OrderStatus == nil {
		writeError(w, r, domain.Invalidf("order_status is required"))
		return
	}

	ctx := r.Context()
	actor := currentUser(r)
	next := strings.TrimSpace(*req.OrderStatus)
	order, err := s.payments.ChangeStatus(ctx, actor.ID, chi.URLParam(r, "orderID"), next)
	if err != nil {
		writeError(w, r, err)
		return
	}

	counterpart := order.BuyerID
	if actor.ID == order.BuyerID {
		counterpart = order.SellerID
	}
	s.hub.Publish(counterpart, realtime.Event{Type: realtime.EventOrder, Data: order})
	s.notify(ctx, &domain.Notification{
		UserID:   counterpart,
		ActorID:  actor.ID,
		Type:     domain.NotificationOrder,
		EntityID: order.ID,
		Message:  "order status changed to " + order.OrderStatus,
	})
	writeJSON(w, http.StatusOK, order)
}

// === Webhook Handler ===

// stripeWebhook принимает события платежной системы. Ответ 2xx означает,
// что событие обработано или сознательно пропущено; 5xx - повторить доставку.
func (s *Server) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, r, domain.Invalidf("unreadable webhook payload"))
		return
	}
	res, err := s.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			log.Printf("[webhook] rejected: %v", err)
		}
		writeError(w, r, err)
		return
	}
	if res.Changed && res.Order != nil {
		s.publishPayment(r.Context(), res.Order)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"received":  true,
		"duplicate": res.Duplicate,
		"ignored":   res.Ignored,
	})
}

func (s *Server) publishPayment(ctx context.Context, order *domain.Order) {
	evt := realtime.Event{Type: realtime.EventOrder, Data: order}
	s.hub.Publish(order.BuyerID, evt)
	s.hub.Publish(order.SellerID, evt)
	s.notify(ctx, &domain.Notification{
		UserID:   order.BuyerID,
		Type:     domain.NotificationOrder,
		EntityID: order.ID,
		Message:  "payment " + order.PaymentStatus,
	})
}
