package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"courtbook/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentlink"
	"github.com/stripe/stripe-go/v76/price"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	ProviderStripe        = "stripe"
	StripeSignatureHeader = "Stripe-Signature"
)

// StripeLinks creates a one-off price and a payment link carrying the
// reservation id in its metadata.
type StripeLinks struct {
	prices      *price.Client
	links       *paymentlink.Client
	redirectURL string
}

func NewStripeLinks(key, redirectURL string, client *http.Client) *StripeLinks {
	cfg := &stripe.BackendConfig{}
	if client != nil {
		cfg.HTTPClient = client
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
	return &StripeLinks{
		prices:      &price.Client{B: backend, Key: key},
		links:       &paymentlink.Client{B: backend, Key: key},
		redirectURL: redirectURL,
	}
}

func (s *StripeLinks) CreateLink(ctx context.Context, req models.PaymentLinkRequest) (models.PaymentLink, error) {
	if s.prices.Key == "" {
		return models.PaymentLink{}, fmt.Errorf("stripe key not configured")
	}
	amount := req.Amount
	if amount < 1 {
		amount = 1
	}
	priceParams := &stripe.PriceParams{
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		UnitAmount:  stripe.Int64(amount),
		ProductData: &stripe.PriceProductDataParams{Name: stripe.String(req.Description)},
	}
	priceParams.Context = ctx
	p, err := s.prices.New(priceParams)
	if err != nil {
		return models.PaymentLink{}, fmt.Errorf("stripe create price: %w", err)
	}

	linkParams := &stripe.PaymentLinkParams{
		LineItems: []*stripe.PaymentLinkLineItemParams{{
			Price:    stripe.String(p.ID),
			Quantity: stripe.Int64(1),
		}},
	}
	if s.redirectURL != "" {
		linkParams.AfterCompletion = &stripe.PaymentLinkAfterCompletionParams{
			Type:     stripe.String(string(stripe.PaymentLinkAfterCompletionTypeRedirect)),
			Redirect: &stripe.PaymentLinkAfterCompletionRedirectParams{URL: stripe.String(s.redirectURL)},
		}
	}
	linkParams.AddMetadata("bookingId", req.ReservationID)
	linkParams.AddMetadata("phone", req.Phone)
	linkParams.Context = ctx

	link, err := s.links.New(linkParams)
	if err != nil {
		return models.PaymentLink{}, fmt.Errorf("stripe create payment link: %w", err)
	}
	return models.PaymentLink{ID: link.ID, URL: link.URL}, nil
}

// StripeVerifier checks the Stripe-Signature header.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: strings.TrimSpace(secret)}
}

func (v *StripeVerifier) Verify(body []byte, header http.Header) error {
	if v.secret == "" {
		return signatureError("webhook secret not configured")
	}
	if err := webhook.ValidatePayload(body, header.Get(StripeSignatureHeader), v.secret); err != nil {
		return signatureError(err.Error())
	}
	return nil
}

// StripeDecoder reads checkout session events.
type StripeDecoder struct{}

func (StripeDecoder) Decode(body []byte) (models.PaymentEvent, error) {
	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return models.PaymentEvent{}, fmt.Errorf("decode stripe event: %w", err)
	}
	ev := models.PaymentEvent{Provider: ProviderStripe, Type: string(event.Type)}
	if !strings.HasPrefix(ev.Type, "checkout.session.") || event.Data == nil {
		return ev, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return models.PaymentEvent{}, fmt.Errorf("decode stripe checkout session: %w", err)
	}
	switch ev.Type {
	case "checkout.session.completed":
		ev.Success = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	case "checkout.session.async_payment_succeeded":
		ev.Success = true
	}
	ev.ReferenceID = session.ClientReferenceID
	ev.NotesID = session.Metadata["bookingId"]
	ev.AmountPaid = session.AmountTotal
	if session.PaymentLink != nil {
		ev.LinkID = session.PaymentLink.ID
	}
	if session.PaymentIntent != nil {
		ev.PaymentID = session.PaymentIntent.ID
	}
	return ev, nil
}
