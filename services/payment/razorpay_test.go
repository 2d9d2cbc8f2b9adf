package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"courtbook/models"
	"courtbook/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func razorpayHeader(sig string) http.Header {
	h := http.Header{}
	h.Set(RazorpaySignatureHeader, sig)
	return h
}

func TestHMACVerifier(t *testing.T) {
	body := []byte(`{"event":"payment_link.paid"}`)
	sum := sign(body, testSecret)
	v := NewHMACVerifier(" "+testSecret+"\n", RazorpaySignatureHeader)

	tests := []struct {
		name    string
		header  http.Header
		wantErr bool
	}{
		{"hex", razorpayHeader(hex.EncodeToString(sum)), false},
		{"base64", razorpayHeader(base64.StdEncoding.EncodeToString(sum)), false},
		{"padded header", razorpayHeader("  " + hex.EncodeToString(sum) + " "), false},
		{"wrong secret", razorpayHeader(hex.EncodeToString(sign(body, "other"))), true},
		{"missing", http.Header{}, true},
		{"garbage", razorpayHeader("abc"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(body, tt.header)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, utils.IsKind(err, utils.KindSignatureInvalid))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHMACVerifierWithoutSecretRejects(t *testing.T) {
	body := []byte(`{}`)
	v := NewHMACVerifier("", RazorpaySignatureHeader)
	assert.Error(t, v.Verify(body, razorpayHeader(hex.EncodeToString(sign(body, "")))))
}

func TestRazorpayDecoder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.PaymentEvent
	}{
		{
			name: "payment link paid",
			body: `{"event":"payment_link.paid","payload":{
				"payment_link":{"entity":{"id":"plink_1","reference_id":"res-1","amount_paid":100000,"notes":{"bookingId":"res-1"}}},
				"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":100000,"notes":[]}},
				"order":{"entity":{"id":"order_1","notes":[]}}}}`,
			want: models.PaymentEvent{
				Provider: ProviderRazorpay, Type: "payment_link.paid", Success: true,
				ReferenceID: "res-1", NotesID: "res-1", LinkID: "plink_1", OrderID: "order_1",
				PaymentID: "pay_1", AmountPaid: 100000,
			},
		},
		{
			name: "payment captured with notes only",
			body: `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2","amount":500,"notes":{"bookingId":"res-2"}}}}}`,
			want: models.PaymentEvent{
				Provider: ProviderRazorpay, Type: "payment.captured", Success: true,
				NotesID: "res-2", OrderID: "order_2", PaymentID: "pay_2", AmountPaid: 500,
			},
		},
		{
			name: "failure event",
			body: `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_3","notes":[]}}}}`,
			want: models.PaymentEvent{Provider: ProviderRazorpay, Type: "payment.failed", PaymentID: "pay_3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RazorpayDecoder{}.Decode([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := RazorpayDecoder{}.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestRazorpayCreateLink(t *testing.T) {
	var got razorpayLinkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)
		assert.Equal(t, "/v1/payment_links", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"plink_9","short_url":"https://rzp.io/l/xyz"}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient("rzp_key", "rzp_secret", srv.URL, "https://courts.example.com/paid", srv.Client())
	link, err := c.CreateLink(context.Background(), models.PaymentLinkRequest{
		ReservationID: "res-1",
		Amount:        0,
		Currency:      "INR",
		CustomerName:  "Asha",
		Phone:         "919000000001",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentLink{ID: "plink_9", URL: "https://rzp.io/l/xyz"}, link)
	assert.Equal(t, int64(1), got.Amount)
	assert.Equal(t, "res-1", got.ReferenceID)
	assert.Equal(t, "res-1", got.Notes["bookingId"])
	assert.Equal(t, "get", got.CallbackMethod)
}

func TestRazorpayCreateLinkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"reference_id already exists"}}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient("k", "s", srv.URL, "", srv.Client())
	_, err := c.CreateLink(context.Background(), models.PaymentLinkRequest{ReservationID: "res-1", Amount: 100, Currency: "INR"})
	assert.ErrorContains(t, err, "reference_id already exists")

	_, err = NewRazorpayClient("", "", srv.URL, "", srv.Client()).CreateLink(context.Background(), models.PaymentLinkRequest{})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Settings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderRazorpay, p.Name)

	p, err = NewProvider(Settings{Provider: ProviderStripe}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, p.Name)

	_, err = NewProvider(Settings{Provider: "paypal"}, nil)
	assert.Error(t, err)
}
