package notification

import (
	"context"
	"errors"
	"fmt"

	"kawan/jsonrpc2"
)

// PushSender hands a data-only payload to the external push channel.
type PushSender interface {
	Send(ctx context.Context, token string, data map[string]string) error
}

// InAppSender delivers a payload to a connected user, if any.
type InAppSender interface {
	SendToUser(uid string, payload []byte)
}

// Fanout turns state transitions into notification records and pushes them
// out. Publishing never blocks the caller and delivery failures never roll
// back the transition that produced the event.
type Fanout struct {
	repo   I_NotifRepo
	push   PushSender
	inapp  InAppSender
	events chan Event
}

func NewFanout(repo I_NotifRepo, push PushSender, inapp InAppSender) *Fanout {
	return &Fanout{
		repo:   repo,
		push:   push,
		inapp:  inapp,
		events: make(chan Event, 256),
	}
}

// Publish enqueues an event, dropping it when the queue is full. A nil
// Fanout swallows events, which keeps callers free of nil checks in tests.
func (me *Fanout) Publish(ev Event) {
	if me == nil {
		return
	}

	select {
	case me.events <- ev:
	default:
		Logger.Info(fmt.Sprintf("fanout queue full, dropping %s event for %s", ev.Type, ev.Object))
	}
}

func (me *Fanout) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-me.events:
			me.handle(ctx, ev)
		}
	}
}

func (me *Fanout) handle(ctx context.Context, ev Event) {
	if len(ev.Recipients) == 0 {
		return
	}

	notifs := make([]*CreateNotification, 0, len(ev.Recipients))
	for _, recipient := range ev.Recipients {
		notifs = append(notifs, &CreateNotification{
			Recipient: recipient,
			Type:      ev.Type,
			Subject:   ev.Subject,
			Object:    ev.Object,
			Title:     ev.Title,
			Content:   ev.Content,
		})
	}

	if _, err := me.repo.AddNotifs(notifs); err != nil {
		Logger.Error(err, "error storing notifications", "type", ev.Type)
	}

	req, err := jsonrpc2.Notify("Notification", ev)
	if err != nil {
		Logger.Error(err, "error building notify payload")
		return
	}
	payload := req.Encode()

	for _, recipient := range ev.Recipients {
		if me.inapp != nil {
			me.inapp.SendToUser(recipient, payload)
		}
		me.pushTo(ctx, recipient, ev)
	}
}

func (me *Fanout) pushTo(ctx context.Context, recipient string, ev Event) {
	if me.push == nil {
		return
	}

	tokens, err := me.repo.ListPushTokens(recipient)
	if err != nil {
		Logger.Error(err, "error listing push tokens", "recipient", recipient)
		return
	}

	data := map[string]string{
		"type":    ev.Type,
		"subject": ev.Subject,
		"object":  ev.Object,
		"title":   ev.Title,
		"content": ev.Content,
	}

	for _, tk := range tokens {
		if err := me.push.Send(ctx, tk.Token, data); err != nil {
			if errors.Is(err, ErrInvalidToken) {
				if delErr := me.repo.DeletePushToken(recipient, tk.Token); delErr != nil {
					Logger.Error(delErr, "error deleting invalid push token", "recipient", recipient)
				}
				continue
			}
			Logger.Error(err, "error sending push", "recipient", recipient)
		}
	}
}
