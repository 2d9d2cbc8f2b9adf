package models

import "time"

// InboundMessage is one chat event after transport decoding.
type InboundMessage struct {
	From       string
	MessageID  string
	Text       string
	ReplyID    string
	ReplyTitle string
	ReceivedAt time.Time
}

// Input is the reply id for interactive selections, else the text body.
func (m InboundMessage) Input() string {
	if m.ReplyID != "" {
		return m.ReplyID
	}
	return m.Text
}

type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}
