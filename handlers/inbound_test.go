package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		from      string
		id        string
		text      string
		replyID   string
	}{
		{
			name: "cloud text",
			body: `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[
				{"from":"919800000001","id":"wamid.1","timestamp":"1761800000","type":"text","text":{"body":"  Start "}}]}}]}]}`,
			wantCount: 1, from: "919800000001", id: "wamid.1", text: "Start",
		},
		{
			name: "cloud list reply",
			body: `{"entry":[{"changes":[{"value":{"messages":[
				{"from":"919800000001","id":"wamid.2","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"dt_3","title":"Sat, 01 Nov"}}}]}}]}]}`,
			wantCount: 1, from: "919800000001", id: "wamid.2", replyID: "dt_3",
		},
		{
			name: "cloud button reply",
			body: `{"entry":[{"changes":[{"value":{"messages":[
				{"from":"919800000001","id":"wamid.3","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"confirm_yes","title":"Confirm & Pay"}}}]}}]}]}`,
			wantCount: 1, from: "919800000001", id: "wamid.3", replyID: "confirm_yes",
		},
		{
			name:      "cloud status callback",
			body:      `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.4","status":"delivered"}]}}]}]}`,
			wantCount: 0,
		},
		{
			name:      "wati text",
			body:      `{"eventType":"message","waId":"919800000002","whatsappMessageId":"wati.1","id":"internal","text":"hi","timestamp":1761800000}`,
			wantCount: 1, from: "919800000002", id: "wati.1", text: "hi",
		},
		{
			name:      "wati list reply",
			body:      `{"eventType":"message","waId":"919800000002","id":"wati.2","text":"","listReply":{"id":"0-4","title":"Evening"}}`,
			wantCount: 1, from: "919800000002", id: "wati.2", replyID: "0-4",
		},
		{
			name:      "wati button title only",
			body:      `{"eventType":"message","waId":"919800000002","id":"wati.3","interactiveButtonReply":{"title":"No, continue"}}`,
			wantCount: 1, from: "919800000002", id: "wati.3", text: "No, continue",
		},
		{
			name:      "wati operator echo",
			body:      `{"eventType":"sessionMessageSent","waId":"919800000002","owner":true,"text":"hello"}`,
			wantCount: 0,
		},
		{
			name:      "bare message",
			body:      `{"message":{"from":"919800000003","id":"m.1","text":{"body":"cancel"}}}`,
			wantCount: 1, from: "919800000003", id: "m.1", text: "cancel",
		},
		{
			name:      "nested data message",
			body:      `{"data":{"message":{"from":"919800000003","id":"m.2","text":{"body":"help"}}}}`,
			wantCount: 1, from: "919800000003", id: "m.2", text: "help",
		},
		{
			name:      "no sender",
			body:      `{"hello":"world"}`,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := DecodeInbound([]byte(tt.body))
			require.NoError(t, err)
			require.Len(t, msgs, tt.wantCount)
			if tt.wantCount == 0 {
				return
			}
			m := msgs[0]
			assert.Equal(t, tt.from, m.From)
			assert.Equal(t, tt.id, m.MessageID)
			assert.Equal(t, tt.text, m.Text)
			assert.Equal(t, tt.replyID, m.ReplyID)
		})
	}
}

func TestDecodeInboundRejectsGarbage(t *testing.T) {
	_, err := DecodeInbound([]byte("not json"))
	assert.Error(t, err)
}
