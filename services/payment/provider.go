package payment

import (
	"context"
	"fmt"
	"net/http"

	"courtbook/models"
	"courtbook/utils"
)

// LinkCreator creates a hosted payment page for a reservation.
type LinkCreator interface {
	CreateLink(ctx context.Context, req models.PaymentLinkRequest) (models.PaymentLink, error)
}

// WebhookVerifier authenticates a raw callback body. It returns a
// KindSignatureInvalid AppError on mismatch.
type WebhookVerifier interface {
	Verify(body []byte, header http.Header) error
}

// EventDecoder reduces a verified callback body to a PaymentEvent.
type EventDecoder interface {
	Decode(body []byte) (models.PaymentEvent, error)
}

// Provider bundles one payment gateway's collaborators.
type Provider struct {
	Name     string
	Links    LinkCreator
	Verifier WebhookVerifier
	Decoder  EventDecoder
}

type Settings struct {
	Provider      string
	CallbackURL   string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	APIBase       string
	StripeKey     string
	StripeSecret  string
}

// NewProvider builds the gateway named by s.Provider. client carries the
// link-creation timeout.
func NewProvider(s Settings, client *http.Client) (Provider, error) {
	switch s.Provider {
	case "", ProviderRazorpay:
		return Provider{
			Name:     ProviderRazorpay,
			Links:    NewRazorpayClient(s.KeyID, s.KeySecret, s.APIBase, s.CallbackURL, client),
			Verifier: NewHMACVerifier(s.WebhookSecret, RazorpaySignatureHeader),
			Decoder:  RazorpayDecoder{},
		}, nil
	case ProviderStripe:
		return Provider{
			Name:     ProviderStripe,
			Links:    NewStripeLinks(s.StripeKey, s.CallbackURL, client),
			Verifier: NewStripeVerifier(s.StripeSecret),
			Decoder:  StripeDecoder{},
		}, nil
	default:
		return Provider{}, fmt.Errorf("unknown payment provider %q", s.Provider)
	}
}

func signatureError(msg string) error {
	return utils.NewAppError(utils.KindSignatureInvalid, msg, nil)
}
