package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"courtbook/models"
)

const (
	ProviderRazorpay        = "razorpay"
	RazorpaySignatureHeader = "X-Razorpay-Signature"
)

var razorpaySuccessEvents = map[string]bool{
	"payment.captured":  true,
	"order.paid":        true,
	"payment_link.paid": true,
}

// RazorpayClient creates Razorpay payment links over the REST API.
type RazorpayClient struct {
	keyID       string
	keySecret   string
	baseURL     string
	callbackURL string
	http        *http.Client
}

func NewRazorpayClient(keyID, keySecret, baseURL, callbackURL string, client *http.Client) *RazorpayClient {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RazorpayClient{
		keyID:       keyID,
		keySecret:   keySecret,
		baseURL:     strings.TrimRight(baseURL, "/"),
		callbackURL: callbackURL,
		http:        client,
	}
}

type razorpayCustomer struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
}

type razorpayLinkRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Description    string            `json:"description,omitempty"`
	ReferenceID    string            `json:"reference_id"`
	Customer       razorpayCustomer  `json:"customer"`
	Notify         map[string]bool   `json:"notify"`
	ReminderEnable bool              `json:"reminder_enable"`
	Notes          map[string]string `json:"notes"`
	CallbackURL    string            `json:"callback_url,omitempty"`
	CallbackMethod string            `json:"callback_method,omitempty"`
}

type razorpayLinkResponse struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Error    *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

func (c *RazorpayClient) CreateLink(ctx context.Context, req models.PaymentLinkRequest) (models.PaymentLink, error) {
	if c.keyID == "" || c.keySecret == "" {
		return models.PaymentLink{}, fmt.Errorf("razorpay keys not configured")
	}
	amount := req.Amount
	if amount < 1 {
		amount = 1
	}
	body := razorpayLinkRequest{
		Amount:         amount,
		Currency:       req.Currency,
		Description:    req.Description,
		ReferenceID:    req.ReservationID,
		Customer:       razorpayCustomer{Name: req.CustomerName, Contact: req.Phone},
		Notify:         map[string]bool{"sms": true, "email": false},
		ReminderEnable: true,
		Notes:          map[string]string{"bookingId": req.ReservationID},
	}
	if c.callbackURL != "" {
		body.CallbackURL = c.callbackURL
		body.CallbackMethod = "get"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return models.PaymentLink{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_links", bytes.NewReader(payload))
	if err != nil {
		return models.PaymentLink{}, err
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return models.PaymentLink{}, fmt.Errorf("razorpay create link: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.PaymentLink{}, fmt.Errorf("razorpay create link: %w", err)
	}
	var out razorpayLinkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.PaymentLink{}, fmt.Errorf("razorpay create link: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || out.ShortURL == "" {
		if out.Error != nil {
			return models.PaymentLink{}, fmt.Errorf("razorpay create link: status %d: %s: %s", resp.StatusCode, out.Error.Code, out.Error.Description)
		}
		return models.PaymentLink{}, fmt.Errorf("razorpay create link: status %d", resp.StatusCode)
	}
	return models.PaymentLink{ID: out.ID, URL: out.ShortURL}, nil
}

// HMACVerifier checks an HMAC-SHA256 of the raw body, accepting the
// signature in hex or base64.
type HMACVerifier struct {
	secret []byte
	header string
}

func NewHMACVerifier(secret, header string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(strings.TrimSpace(secret)), header: header}
}

func (v *HMACVerifier) Verify(body []byte, header http.Header) error {
	if len(v.secret) == 0 {
		return signatureError("webhook secret not configured")
	}
	sig := strings.TrimSpace(header.Get(v.header))
	if sig == "" {
		return signatureError("missing signature")
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	sum := mac.Sum(nil)

	if constantEqual(sig, hex.EncodeToString(sum)) || constantEqual(sig, base64.StdEncoding.EncodeToString(sum)) {
		return nil
	}
	return signatureError("signature mismatch")
}

func constantEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type razorpayEntity struct {
	ID          string          `json:"id"`
	ReferenceID string          `json:"reference_id"`
	OrderID     string          `json:"order_id"`
	Amount      int64           `json:"amount"`
	AmountPaid  int64           `json:"amount_paid"`
	Notes       json.RawMessage `json:"notes"`
}

type razorpayWrapper struct {
	Entity razorpayEntity `json:"entity"`
}

type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		PaymentLink *razorpayWrapper `json:"payment_link"`
		Payment     *razorpayWrapper `json:"payment"`
		Order       *razorpayWrapper `json:"order"`
	} `json:"payload"`
}

// RazorpayDecoder reads Razorpay webhook envelopes.
type RazorpayDecoder struct{}

func (RazorpayDecoder) Decode(body []byte) (models.PaymentEvent, error) {
	var env razorpayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return models.PaymentEvent{}, fmt.Errorf("decode razorpay event: %w", err)
	}
	ev := models.PaymentEvent{
		Provider: ProviderRazorpay,
		Type:     env.Event,
		Success:  razorpaySuccessEvents[env.Event],
	}
	p := env.Payload
	if p.PaymentLink != nil {
		ev.ReferenceID = p.PaymentLink.Entity.ReferenceID
		ev.LinkID = p.PaymentLink.Entity.ID
		ev.AmountPaid = p.PaymentLink.Entity.AmountPaid
		ev.NotesID = bookingNote(p.PaymentLink.Entity.Notes)
	}
	if p.Payment != nil {
		ev.PaymentID = p.Payment.Entity.ID
		if ev.OrderID == "" {
			ev.OrderID = p.Payment.Entity.OrderID
		}
		if ev.NotesID == "" {
			ev.NotesID = bookingNote(p.Payment.Entity.Notes)
		}
		if ev.AmountPaid == 0 {
			ev.AmountPaid = p.Payment.Entity.Amount
		}
	}
	if p.Order != nil {
		if ev.OrderID == "" {
			ev.OrderID = p.Order.Entity.ID
		}
		if ev.NotesID == "" {
			ev.NotesID = bookingNote(p.Order.Entity.Notes)
		}
	}
	return ev, nil
}

// bookingNote reads notes.bookingId. Razorpay sends empty notes as [].
func bookingNote(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var notes map[string]interface{}
	if err := json.Unmarshal(raw, &notes); err != nil {
		return ""
	}
	if id, ok := notes["bookingId"].(string); ok {
		return id
	}
	return ""
}
