// internal/services/payment_gateway.go
package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/propshare/propshare-backend/internal/config"
)

// ChargeRequest asks the gateway to collect a payment. IdempotencyKey is the
// saga's transaction ID, so a caller-level retry of a timed-out charge cannot
// produce a second charge on the gateway side.
type ChargeRequest struct {
	Amount         float64
	Currency       string
	PaymentMethod  string
	IdempotencyKey string
	Metadata       map[string]string
}

type ChargeResult struct {
	Reference string
	Status    string
}

// PaymentGateway charges and refunds payment instruments. Once the gateway
// has acknowledged a charge, this engine never re-issues it.
type PaymentGateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, reference string, amount float64, reason string) error
}

// StripeGateway implements PaymentGateway on Stripe payment intents.
type StripeGateway struct {
	config *config.Config
}

func NewStripeGateway(cfg *config.Config) *StripeGateway {
	// Initialize Stripe
	stripe.Key = cfg.Payment.StripeSecretKey

	return &StripeGateway{config: cfg}
}

func (g *StripeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.config.Payment.DefaultCurrency
	}

	// Convert amount to cents for Stripe
	amountInCents := int64(req.Amount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountInCents),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(req.PaymentMethod),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("payment intent %s not succeeded: %s", pi.ID, pi.Status)
	}

	return &ChargeResult{
		Reference: pi.ID,
		Status:    string(pi.Status),
	}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, reference string, amount float64, reason string) error {
	refundAmountCents := int64(amount * 100)
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(reference),
		Amount:        stripe.Int64(refundAmountCents),
		Reason:        stripe.String("requested_by_customer"),
	}
	params.Context = ctx
	params.AddMetadata("refund_reason", reason)

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to process refund: %w", err)
	}

	return nil
}
