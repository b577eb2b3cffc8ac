package notify

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/plumehq/plume/backend/internal/models"
	"github.com/plumehq/plume/backend/internal/realtime"
	"github.com/plumehq/plume/backend/internal/repositories"
)

const dispatchTimeout = 10 * time.Second

// Event describes one notifiable action against a recipient.
type Event struct {
	RecipientID primitive.ObjectID
	Type        string
	Post        *primitive.ObjectID
}

// NotificationStore persists notifications; a repeat of the same
// (recipient, sender, type, post) tuple returns ErrDuplicateNotification.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// UserDirectory resolves usernames for mention extraction.
type UserDirectory interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Presence locates a recipient's live connection and pushes to it.
type Presence interface {
	Resolve(userID primitive.ObjectID) (string, bool)
	Push(connID string, ev realtime.Event) error
}

// Engine records each event at most once per dedup tuple and delivers it live
// when the recipient is connected. Every failure inside the engine is logged
// and swallowed: the action that triggered the notification already succeeded
// and must report success regardless of what happens here.
type Engine struct {
	store    NotificationStore
	users    UserDirectory
	presence Presence
	log      *zap.Logger
}

// NewEngine creates a notification engine
func NewEngine(store NotificationStore, users UserDirectory, presence Presence, log *zap.Logger) *Engine {
	return &Engine{store: store, users: users, presence: presence, log: log}
}

// Notify records the event and attempts live delivery. Self-notifications are
// suppressed. The insert is a single conditional write; a duplicate conflict
// means the event was already recorded and completes as a no-op.
func (e *Engine) Notify(ctx context.Context, actor *models.User, ev Event) {
	if ev.RecipientID == actor.ID {
		return
	}

	n := &models.Notification{
		Recipient: ev.RecipientID,
		Sender:    actor.ID,
		Type:      ev.Type,
		Post:      ev.Post,
	}
	if err := e.store.CreateNotification(ctx, n); err != nil {
		if errors.Is(err, repositories.ErrDuplicateNotification) {
			return
		}
		e.log.Warn("notification insert failed",
			zap.String("type", ev.Type),
			zap.String("recipient", ev.RecipientID.Hex()),
			zap.Error(err))
		return
	}

	// Durable record exists; live delivery is best effort from here on.
	connID, ok := e.presence.Resolve(ev.RecipientID)
	if !ok {
		return
	}
	if err := e.presence.Push(connID, realtime.Event{Type: ev.Type, From: actor.Username}); err != nil {
		e.log.Warn("live delivery failed",
			zap.String("recipient", ev.RecipientID.Hex()),
			zap.Error(err))
	}
}

// Dispatch runs Notify on its own goroutine with a fresh timeout context.
// Callers never await it; a panic or slow store cannot reach the caller's
// response path.
func (e *Engine) Dispatch(actor *models.User, ev Event) {
	go func() {
		defer e.recoverPanic("notify")
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		e.Notify(ctx, actor, ev)
	}()
}

// NotifyMentions scans text for @username tokens and notifies each distinct
// resolvable user. Unresolvable names are skipped.
func (e *Engine) NotifyMentions(ctx context.Context, actor *models.User, text string, postID primitive.ObjectID) {
	for _, username := range MentionCandidates(text) {
		user, err := e.users.GetUserByUsername(ctx, username)
		if err != nil {
			continue
		}
		pid := postID
		e.Notify(ctx, actor, Event{
			RecipientID: user.ID,
			Type:        models.NotificationMention,
			Post:        &pid,
		})
	}
}

// DispatchMentions is the fire-and-forget form of NotifyMentions.
func (e *Engine) DispatchMentions(actor *models.User, text string, postID primitive.ObjectID) {
	go func() {
		defer e.recoverPanic("mentions")
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		e.NotifyMentions(ctx, actor, text, postID)
	}()
}

func (e *Engine) recoverPanic(op string) {
	if r := recover(); r != nil {
		e.log.Error("notification dispatch panicked", zap.String("op", op), zap.Any("panic", r))
	}
}
