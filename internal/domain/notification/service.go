package notification

import (
	"context"
)

// Sink is the chat transport.
type Sink interface {
	Send(ctx context.Context, msg Message) (MessageRef, error)
	SendWithActions(ctx context.Context, chatID int64, text string, actions []Action) (MessageRef, error)
	// Reply posts text as a reply to ref.
	Reply(ctx context.Context, ref MessageRef, text string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string) error
	Delete(ctx context.Context, ref MessageRef) error
	Relay(ctx context.Context, chatID int64, att Attachment, caption string) error
	Forward(ctx context.Context, chatID int64, from MessageRef) error
}

// Service is what the workflows use to talk to people. Every method logs
// delivery failures; only the methods returning a MessageRef report them.
type Service interface {
	// Notify queues a direct message; delivery is asynchronous and ordered per recipient.
	Notify(ctx context.Context, chatID int64, text string)
	NotifyMarkdown(ctx context.Context, chatID int64, text string)
	// NotifyMenu sends text together with the member action keyboard.
	NotifyMenu(ctx context.Context, chatID int64, text string)

	// NotifyNow delivers synchronously and reports the failure.
	NotifyNow(ctx context.Context, chatID int64, text string) error

	PostReview(ctx context.Context, text string, actions []Action, event Event) (MessageRef, error)
	EditReview(ctx context.Context, ref MessageRef, text string, event Event)
	Prompt(ctx context.Context, origin MessageRef, text string) (MessageRef, error)
	DeleteMessage(ctx context.Context, ref MessageRef)
	RelayAttachment(ctx context.Context, att Attachment, caption string, event Event)
	ForwardNote(ctx context.Context, from MessageRef, caption string, event Event)

	// Advise posts an advisory to the review channel.
	Advise(ctx context.Context, text string, event Event)

	// AlertOperator reports durable-write failures to the operator channel.
	AlertOperator(ctx context.Context, text string)

	// Subscribe streams review events (SSE).
	Subscribe(ctx context.Context, subscriberID string) (<-chan Event, func())

	// Lifecycle
	Stop()
}
