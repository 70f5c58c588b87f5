package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
	"github.com/UkralStul/ecosocial/internal/storage/inmemory"
	"github.com/UkralStul/ecosocial/internal/storage/storagetest"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) CreateIntent(ctx context.Context, order *domain.Order) (*Intent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Intent{ID: "pi_" + order.ID, ClientSecret: "secret_" + order.ID}, nil
}

type fixture struct {
	store   *inmemory.Store
	svc     *Service
	proc    *fakeProcessor
	buyer   *domain.User
	seller  *domain.User
	product *domain.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmemory.New()
	seller := storagetest.MustUser(t, store, "seller")
	buyer := storagetest.MustUser(t, store, "buyer")
	product, err := store.CreateProduct(context.Background(), &domain.Product{
		SellerID: seller.ID, Title: "Reusable bottle", PriceCents: 1250, Currency: "usd", Stock: 5,
	})
	require.NoError(t, err)

	proc := &fakeProcessor{}
	return &fixture{
		store:   store,
		svc:     NewService(store, proc, NewVerifier(testSecret)),
		proc:    proc,
		buyer:   buyer,
		seller:  seller,
		product: product,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), f.product.ID)
	require.NoError(t, err)
	return p.Stock
}

func signed(t *testing.T, eventID, eventType, orderID string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2023-10-16",
		"type": %q,
		"data": {"object": {"id": "pi_1", "object": "payment_intent", "metadata": {"order_id": %q}}}
	}`, eventID, eventType, orderID))
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), order.TotalCents)
	assert.Equal(t, int64(1250), order.UnitPriceCents)
	assert.Equal(t, domain.OrderPending, order.OrderStatus)
	assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	assert.Equal(t, "pi_"+order.ID, order.PaymentIntentID)
	assert.Equal(t, "secret_"+order.ID, order.ClientSecret)
	assert.Equal(t, 3, f.stock(t))

	stored, err := f.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentIntentID, stored.PaymentIntentID)
}

func TestCheckout_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = f.svc.Checkout(ctx, f.seller.ID, f.product.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = f.svc.Checkout(ctx, f.buyer.ID, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.proc.calls)
}

func TestCheckout_ProcessorFailureRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.proc.err = errors.New("card network down")

	_, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 2)
	require.Error(t, err)
	assert.Equal(t, 5, f.stock(t))

	orders, err := f.store.ListOrders(ctx, storage.OrderFilter{BuyerID: f.buyer.ID}, storage.Page{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderCancelled, orders[0].OrderStatus)
}

func TestCheckout_WithoutProcessor(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.store, nil, NewVerifier(testSecret))

	order, err := svc.Checkout(context.Background(), f.buyer.ID, f.product.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, order.PaymentIntentID)
	assert.Empty(t, order.ClientSecret)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 2)
	require.NoError(t, err)

	// Покупатель может только отменить заказ в статусе pending
	_, err = f.svc.ChangeStatus(ctx, f.buyer.ID, order.ID, domain.OrderShipped)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stranger := storagetest.MustUser(t, f.store, "stranger")
	_, err = f.svc.ChangeStatus(ctx, stranger.ID, order.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cancelled, err := f.svc.ChangeStatus(ctx, f.buyer.ID, order.ID, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, cancelled.OrderStatus)
	assert.Equal(t, 5, f.stock(t))

	// Продавец задает любой статус
	second, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 1)
	require.NoError(t, err)
	fulfilled, err := f.svc.ChangeStatus(ctx, f.seller.ID, second.ID, domain.OrderFulfilled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFulfilled, fulfilled.OrderStatus)

	_, err = f.svc.ChangeStatus(ctx, f.buyer.ID, second.ID, domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestHandleWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 1)
	require.NoError(t, err)

	payload, header := signed(t, "evt_1", domain.EventPaymentSucceeded, order.ID)
	res, err := f.svc.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Order)
	assert.Equal(t, domain.PaymentCompleted, res.Order.PaymentStatus)
	assert.Equal(t, domain.OrderPending, res.Order.OrderStatus)

	// Повтор того же события ничего не меняет
	res, err = f.svc.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.False(t, res.Changed)
}

func TestHandleWebhook_BadSignatureLeavesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 1)
	require.NoError(t, err)

	payload, header := signed(t, "evt_1", domain.EventPaymentFailed, order.ID)
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '

	for _, tc := range []struct {
		name    string
		payload []byte
		header  string
	}{
		{"tampered body", tampered, header},
		{"missing header", payload, ""},
		{"garbage header", payload, "t=1,v1=deadbeef"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.HandleWebhook(ctx, tc.payload, tc.header)
			assert.ErrorIs(t, err, domain.ErrInvalid)
		})
	}

	got, err := f.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, got.PaymentStatus)
	seen, err := f.store.WebhookEventProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestHandleWebhook_EventMapping(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{domain.EventPaymentSucceeded, domain.PaymentCompleted},
		{domain.EventPaymentFailed, domain.PaymentFailed},
		{domain.EventPaymentCanceled, domain.PaymentCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			order, err := f.svc.Checkout(ctx, f.buyer.ID, f.product.ID, 1)
			require.NoError(t, err)

			payload, header := signed(t, "evt_"+tt.want, tt.eventType, order.ID)
			_, err = f.svc.HandleWebhook(ctx, payload, header)
			require.NoError(t, err)

			got, err := f.store.GetOrder(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.PaymentStatus)
		})
	}
}

func TestHandleWebhook_IgnoredEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload, header := signed(t, "evt_other", "customer.created", "")
	res, err := f.svc.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)
	assert.True(t, res.Ignored)

	payload, header = signed(t, "evt_lost", domain.EventPaymentSucceeded, "missing-order")
	res, err = f.svc.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)
	assert.True(t, res.Ignored)

	seen, err := f.store.WebhookEventProcessed(ctx, "evt_lost")
	require.NoError(t, err)
	assert.True(t, seen)
}
