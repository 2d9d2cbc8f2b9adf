package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courtbook/models"

	"go.uber.org/zap"
)

type WhatsAppConfig struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// WhatsAppClient talks to the WhatsApp Cloud API messages endpoint.
type WhatsAppClient struct {
	cfg    WhatsAppConfig
	http   *http.Client
	logger *zap.Logger
}

func NewWhatsAppClient(cfg WhatsAppConfig, logger *zap.Logger) *WhatsAppClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WhatsAppClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Configured reports whether credentials are present. An unconfigured client
// logs and drops outbound messages.
func (c *WhatsAppClient) Configured() bool {
	return c.cfg.AccessToken != "" && c.cfg.PhoneNumberID != ""
}

type textBody struct {
	Text string `json:"text"`
}

type replyButton struct {
	Type  string        `json:"type"`
	Reply models.Button `json:"reply"`
}

type interactive struct {
	Type   string      `json:"type"`
	Header *headerBody `json:"header,omitempty"`
	Body   textBody    `json:"body"`
	Action interface{} `json:"action"`
}

type headerBody struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outbound struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, outbound{To: to, Type: "text", Text: &textBody{Text: body}})
}

func (c *WhatsAppClient) SendButtons(ctx context.Context, to, body string, buttons []models.Button) error {
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}
	action := struct {
		Buttons []replyButton `json:"buttons"`
	}{}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, replyButton{
			Type:  "reply",
			Reply: models.Button{ID: b.ID, Title: truncate(b.Title, MaxButtonTitle)},
		})
	}
	return c.send(ctx, outbound{To: to, Type: "interactive", Interactive: &interactive{
		Type:   "button",
		Body:   textBody{Text: body},
		Action: action,
	}})
}

func (c *WhatsAppClient) SendList(ctx context.Context, to, header, body, button string, sections []models.Section) error {
	action := struct {
		Button   string           `json:"button"`
		Sections []models.Section `json:"sections"`
	}{Button: truncate(button, MaxListButton), Sections: ClampSections(sections)}

	msg := &interactive{Type: "list", Body: textBody{Text: body}, Action: action}
	if header != "" {
		msg.Header = &headerBody{Type: "text", Text: header}
	}
	return c.send(ctx, outbound{To: to, Type: "interactive", Interactive: msg})
}

func (c *WhatsAppClient) SendLinkButton(ctx context.Context, to, body, url, title string) error {
	action := struct {
		Name       string            `json:"name"`
		Parameters map[string]string `json:"parameters"`
	}{
		Name: "cta_url",
		Parameters: map[string]string{
			"display_text": truncate(title, MaxButtonTitle),
			"url":          url,
		},
	}
	return c.send(ctx, outbound{To: to, Type: "interactive", Interactive: &interactive{
		Type:   "cta_url",
		Body:   textBody{Text: body},
		Action: action,
	}})
}

func (c *WhatsAppClient) send(ctx context.Context, msg outbound) error {
	if !c.Configured() {
		c.logger.Warn("WhatsApp not configured, dropping outbound message",
			zap.String("to", msg.To), zap.String("type", msg.Type))
		return nil
	}
	msg.MessagingProduct = "whatsapp"
	msg.RecipientType = "individual"

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode whatsapp message: %w", err)
	}
	url := fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.APIVersion, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("WhatsApp API error",
			zap.String("to", msg.To), zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return fmt.Errorf("whatsapp send failed: status %d", resp.StatusCode)
	}
	return nil
}

// ClampSections trims titles and descriptions and caps the total row count.
func ClampSections(sections []models.Section) []models.Section {
	out := make([]models.Section, 0, len(sections))
	remaining := MaxListRows
	for _, s := range sections {
		if remaining == 0 {
			break
		}
		rows := s.Rows
		if len(rows) > remaining {
			rows = rows[:remaining]
		}
		remaining -= len(rows)

		clamped := models.Section{Title: truncate(s.Title, MaxRowTitle)}
		for _, r := range rows {
			clamped.Rows = append(clamped.Rows, models.Row{
				ID:          r.ID,
				Title:       truncate(r.Title, MaxRowTitle),
				Description: truncate(r.Description, MaxRowDescription),
			})
		}
		out = append(out, clamped)
	}
	return out
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
