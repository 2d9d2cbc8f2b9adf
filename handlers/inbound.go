package handlers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"courtbook/models"
)

// Cloud API message, also used by adapters that forward it as-is.
type cloudMessage struct {
	From        string            `json:"from"`
	ID          string            `json:"id"`
	Timestamp   json.RawMessage   `json:"timestamp"`
	Type        string            `json:"type"`
	Text        json.RawMessage   `json:"text"`
	Interactive *cloudInteractive `json:"interactive"`
	Button      *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button"`
}

type cloudInteractive struct {
	Type        string      `json:"type"`
	ButtonReply *replyEntry `json:"button_reply"`
	ListReply   *replyEntry `json:"list_reply"`
}

type replyEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// inboundEnvelope covers the Cloud API webhook, WATI events and the bare
// message shapes some relays post.
type inboundEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []cloudMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`

	EventType              string      `json:"eventType"`
	WaID                   string      `json:"waId"`
	WhatsappMessageID      string      `json:"whatsappMessageId"`
	ConversationID         string      `json:"conversationId"`
	Owner                  bool        `json:"owner"`
	ListReply              *replyEntry `json:"listReply"`
	InteractiveButtonReply *replyEntry `json:"interactiveButtonReply"`
	ButtonReply            *replyEntry `json:"buttonReply"`

	Message *cloudMessage `json:"message"`
	Data    *struct {
		Message *cloudMessage `json:"message"`
	} `json:"data"`

	cloudMessage
}

// DecodeInbound extracts chat messages from a webhook body. Status callbacks,
// operator echoes and bodies without a sender yield no messages.
func DecodeInbound(body []byte) ([]models.InboundMessage, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	if env.EventType != "" && env.WaID != "" {
		if env.Owner {
			return nil, nil
		}
		return []models.InboundMessage{watiMessage(env)}, nil
	}

	var out []models.InboundMessage
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				out = appendMessage(out, m)
			}
		}
	}
	if len(env.Entry) > 0 {
		return out, nil
	}

	switch {
	case env.Message != nil:
		out = appendMessage(out, *env.Message)
	case env.Data != nil && env.Data.Message != nil:
		out = appendMessage(out, *env.Data.Message)
	default:
		out = appendMessage(out, env.cloudMessage)
	}
	return out, nil
}

func appendMessage(out []models.InboundMessage, m cloudMessage) []models.InboundMessage {
	if m.From == "" {
		return out
	}
	msg := models.InboundMessage{
		From:       m.From,
		MessageID:  m.ID,
		Text:       textBody(m.Text),
		ReceivedAt: parseUnix(m.Timestamp),
	}
	if m.Interactive != nil {
		switch {
		case m.Interactive.ListReply != nil:
			msg.ReplyID, msg.ReplyTitle = m.Interactive.ListReply.ID, m.Interactive.ListReply.Title
		case m.Interactive.ButtonReply != nil:
			msg.ReplyID, msg.ReplyTitle = m.Interactive.ButtonReply.ID, m.Interactive.ButtonReply.Title
		}
	}
	if m.Button != nil && msg.ReplyID == "" {
		msg.ReplyID, msg.ReplyTitle = m.Button.Payload, m.Button.Text
	}
	return append(out, withTitleFallback(msg))
}

func watiMessage(env inboundEnvelope) models.InboundMessage {
	id := env.WhatsappMessageID
	if id == "" {
		id = env.ID
	}
	if id == "" {
		id = env.ConversationID
	}
	msg := models.InboundMessage{
		From:       env.WaID,
		MessageID:  id,
		Text:       textBody(env.Text),
		ReceivedAt: parseUnix(env.Timestamp),
	}
	for _, r := range []*replyEntry{env.InteractiveButtonReply, env.ButtonReply, env.ListReply} {
		if r != nil && (r.ID != "" || r.Title != "") {
			msg.ReplyID, msg.ReplyTitle = r.ID, r.Title
			break
		}
	}
	return withTitleFallback(msg)
}

// withTitleFallback uses the reply title as text when a reply carries no id.
func withTitleFallback(msg models.InboundMessage) models.InboundMessage {
	if msg.ReplyID == "" && msg.Text == "" {
		msg.Text = msg.ReplyTitle
	}
	msg.Text = strings.TrimSpace(msg.Text)
	return msg
}

// textBody reads either {"body": "..."} or a bare string.
func textBody(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Body
	}
	return ""
}

// parseUnix reads epoch seconds sent as a string or a number.
func parseUnix(raw json.RawMessage) time.Time {
	secs, err := strconv.ParseInt(strings.Trim(string(raw), `"`), 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
