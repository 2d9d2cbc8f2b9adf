package payment

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripeDecoder(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSuccess bool
		wantLink    string
		wantNotes   string
	}{
		{
			name: "completed and paid",
			body: `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{
				"id":"cs_1","object":"checkout.session","payment_status":"paid","amount_total":100000,
				"payment_link":"plink_1","metadata":{"bookingId":"res-1"}}}}`,
			wantSuccess: true,
			wantLink:    "plink_1",
			wantNotes:   "res-1",
		},
		{
			name: "completed but unpaid",
			body: `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{
				"id":"cs_2","object":"checkout.session","payment_status":"unpaid","payment_link":"plink_2","metadata":{}}}}`,
			wantLink: "plink_2",
		},
		{
			name: "async success",
			body: `{"id":"evt_3","object":"event","type":"checkout.session.async_payment_succeeded","data":{"object":{
				"id":"cs_3","object":"checkout.session","payment_status":"paid","metadata":{"bookingId":"res-3"}}}}`,
			wantSuccess: true,
			wantNotes:   "res-3",
		},
		{
			name: "unrelated event",
			body: `{"id":"evt_4","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := StripeDecoder{}.Decode([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, ProviderStripe, ev.Provider)
			assert.Equal(t, tt.wantSuccess, ev.Success)
			assert.Equal(t, tt.wantLink, ev.LinkID)
			assert.Equal(t, tt.wantNotes, ev.NotesID)
		})
	}
}

func TestStripeVerifierRejectsBadSignature(t *testing.T) {
	h := http.Header{}
	h.Set(StripeSignatureHeader, "t=1,v1=deadbeef")

	assert.Error(t, NewStripeVerifier("whsec_x").Verify([]byte(`{}`), h))
	assert.Error(t, NewStripeVerifier("").Verify([]byte(`{}`), h))
}
