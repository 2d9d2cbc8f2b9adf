package notification

import (
	"context"

	"courtbook/models"
)

// Channel limits for interactive messages.
const (
	MaxButtons        = 3
	MaxButtonTitle    = 20
	MaxListRows       = 10
	MaxRowTitle       = 24
	MaxRowDescription = 72
	MaxListButton     = 20
)

// Messenger sends chat messages to a phone number. Implementations clamp
// interactive content to the channel limits above.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []models.Button) error
	SendList(ctx context.Context, to, header, body, button string, sections []models.Section) error
	// SendLinkButton sends body with a single call-to-action button opening url.
	SendLinkButton(ctx context.Context, to, body, url, title string) error
}
