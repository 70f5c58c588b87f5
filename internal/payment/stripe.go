package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Intent - созданное платежное намерение.
type Intent struct {
	ID           string
	ClientSecret string
}

// Processor создает платежные намерения для заказов.
type Processor interface {
	CreateIntent(ctx context.Context, order *domain.Order) (*Intent, error)
}

// StripeProcessor создает PaymentIntent через API Stripe.
type StripeProcessor struct {
	api *client.API
}

func NewStripe(secretKey string) *StripeProcessor {
	return &StripeProcessor{api: client.New(secretKey, nil)}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, order *domain.Order) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.TotalCents),
		Currency: stripe.String(order.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(OrderIDMetadataKey, order.ID)
	params.SetIdempotencyKey("order-" + order.ID)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

const OrderIDMetadataKey = "order_id"

// Event - проверенное событие вебхука.
type Event struct {
	ID       string
	Type     string
	IntentID string
	OrderID  string
}

var ErrInvalidSignature = &domain.Error{Kind: domain.ErrInvalid, Msg: "invalid webhook signature"}

// Verifier проверяет подпись Stripe-Signature.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Parse проверяет подпись и разбирает событие. Для событий payment_intent
// заполняются IntentID и OrderID из метаданных.
func (v *Verifier) Parse(payload []byte, header string) (*Event, error) {
	if v.secret == "" || header == "" {
		return nil, ErrInvalidSignature
	}
	evt, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, ErrInvalidSignature
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if _, ok := domain.PaymentStatusForEvent(out.Type); ok && evt.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, domain.Invalidf("malformed payment intent payload")
		}
		out.IntentID = pi.ID
		out.OrderID = pi.Metadata[OrderIDMetadataKey]
	}
	return out, nil
}
