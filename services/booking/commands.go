package booking

import (
	"context"
	"strings"

	"courtbook/models"
	"courtbook/services/messages"

	"go.uber.org/zap"
)

type command string

const (
	cmdRestart    command = "restart"
	cmdCancel     command = "cancel"
	cmdHelp       command = "help"
	cmdMembership command = "membership"
)

var commandWords = map[string]command{
	"start":       cmdRestart,
	"hi":          cmdRestart,
	"hello":       cmdRestart,
	"exit":        cmdCancel,
	"cancel":      cmdCancel,
	"help":        cmdHelp,
	"membership":  cmdMembership,
	"memberships": cmdMembership,
}

func parseCommand(input string) (command, bool) {
	cmd, ok := commandWords[strings.ToLower(strings.TrimSpace(input))]
	return cmd, ok
}

func (r *Router) runCommand(ctx context.Context, cmd command, conv *models.Conversation, msg models.InboundMessage) error {
	switch cmd {
	case cmdRestart:
		return r.start(ctx, conv, msg)
	case cmdCancel:
		if conv != nil {
			if err := r.repo.Discard(ctx, conv); err != nil {
				return err
			}
		}
		r.sendText(ctx, msg.From, messages.Cancelled)
	case cmdHelp:
		r.sendText(ctx, msg.From, messages.Help)
	case cmdMembership:
		r.sendMembership(ctx, msg.From)
	}
	return nil
}

// start drops whatever the phone had going and opens a fresh conversation
// at activity selection. The new record already carries the message id so
// a redelivery is recognised.
func (r *Router) start(ctx context.Context, conv *models.Conversation, msg models.InboundMessage) error {
	if conv != nil {
		if err := r.repo.Discard(ctx, conv); err != nil {
			return err
		}
	}
	fresh := models.NewConversation(msg.From, models.StepSelectingActivity, r.now().UTC())
	fresh.Draft.LastMessageID = msg.MessageID
	if err := r.repo.Create(ctx, fresh); err != nil {
		return err
	}
	r.logger.Info("Conversation started", zap.String("phone", msg.From), zap.String("conversationId", fresh.ID))
	r.sendMenu(ctx, msg.From, activityMenu(r.catalog))
	return nil
}

// welcome moves a record left at the initial step onto activity selection.
func (r *Router) welcome(ctx context.Context, conv *models.Conversation) error {
	conv.Step = models.StepSelectingActivity
	if err := r.repo.Save(ctx, conv); err != nil {
		return err
	}
	r.sendMenu(ctx, conv.Phone, activityMenu(r.catalog))
	return nil
}

func (r *Router) sendMembership(ctx context.Context, to string) {
	if r.catalog.MembershipURL == "" {
		r.sendText(ctx, to, messages.Help)
		return
	}
	r.sendLink(ctx, to, promptMembership, r.catalog.MembershipURL, "View Memberships")
}
