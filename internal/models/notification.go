package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
	NotificationMention = "mention"
)

// Notification is an event record addressed to a recipient. The tuple
// (recipient, sender, type, post) is unique; for follow events Post is nil
// and the tuple degrades to (recipient, sender, type, null).
type Notification struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Recipient primitive.ObjectID  `json:"recipient" bson:"recipient"`
	Sender    primitive.ObjectID  `json:"sender" bson:"sender"`
	Type      string              `json:"type" bson:"type"`
	Post      *primitive.ObjectID `json:"post,omitempty" bson:"post"`
	IsRead    bool                `json:"isRead" bson:"isRead"`
	CreatedAt time.Time           `json:"created_at" bson:"createdAt"`
}
