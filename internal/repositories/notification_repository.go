package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/plumehq/plume/backend/internal/models"
)

// EnrichedNotification includes the sender's public shape and, when the
// notification targets a post, its id and title.
type EnrichedNotification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Type      string             `json:"type" bson:"type"`
	Sender    models.UserCompact `json:"sender" bson:"sender"`
	Post      *NotificationPost  `json:"post,omitempty" bson:"post,omitempty"`
	IsRead    bool               `json:"isRead" bson:"isRead"`
	CreatedAt time.Time          `json:"created_at" bson:"createdAt"`
}

// NotificationPost is the post reference joined into a notification
type NotificationPost struct {
	ID    primitive.ObjectID `json:"id" bson:"_id"`
	Title string             `json:"title" bson:"title"`
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	// CreateNotification inserts a notification, relying on the unique
	// (recipient, sender, type, post) index. A conflicting insert returns
	// ErrDuplicateNotification; there is no read-before-write.
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetRecent(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]EnrichedNotification, error)
	GetUnreadCount(ctx context.Context, recipientID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id, recipientID primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, recipientID primitive.ObjectID) error
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// CreateNotification performs the conditional insert described on the interface
func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.ID = primitive.NewObjectID()
	n.IsRead = false
	n.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, n)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateNotification
	}
	return err
}

// GetRecent returns the recipient's newest notifications, sender and post
// resolved, newest first.
func (r *MongoNotificationRepository) GetRecent(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]EnrichedNotification, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "recipient", Value: recipientID}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		bson.D{{Key: "$limit", Value: limit}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "sender"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "sender"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$sender"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "posts"},
			{Key: "localField", Value: "post"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "post"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$post"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "type", Value: 1},
			{Key: "isRead", Value: 1},
			{Key: "createdAt", Value: 1},
			{Key: "sender", Value: bson.D{
				{Key: "_id", Value: "$sender._id"},
				{Key: "username", Value: "$sender.username"},
				{Key: "profilePic", Value: "$sender.profilePic"},
			}},
			// Follow notifications carry no post; drop the field instead of
			// emitting an empty document.
			{Key: "post", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{"$post", nil}}},
				bson.D{
					{Key: "_id", Value: "$post._id"},
					{Key: "title", Value: "$post.title"},
				},
				"$$REMOVE",
			}}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []EnrichedNotification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// GetUnreadCount counts the recipient's unread notifications
func (r *MongoNotificationRepository) GetUnreadCount(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"recipient": recipientID, "isRead": false})
}

// MarkAsRead flips a single notification owned by the recipient
func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "recipient": recipientID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllAsRead flips every unread notification for the recipient; idempotent
func (r *MongoNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"recipient": recipientID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	return err
}
