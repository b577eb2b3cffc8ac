package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/plumehq/plume/backend/internal/models"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	DeleteComment(ctx context.Context, id primitive.ObjectID) error
	DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) error
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	comments *mongo.Collection
	posts    *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{
		comments: db.Collection("comments"),
		posts:    db.Collection("posts"),
	}
}

// CreateComment inserts the comment and appends its id to the parent post's
// comments sequence.
func (r *MongoCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = time.Now()

	if _, err := r.comments.InsertOne(ctx, comment); err != nil {
		return err
	}

	_, err := r.posts.UpdateOne(ctx,
		bson.M{"_id": comment.Post},
		bson.M{"$push": bson.M{"comments": comment.ID}},
	)
	return err
}

// GetCommentByID retrieves a comment by id
func (r *MongoCommentRepository) GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := r.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes the comment and pulls its id from the parent post
func (r *MongoCommentRepository) DeleteComment(ctx context.Context, id primitive.ObjectID) error {
	var comment models.Comment
	err := r.comments.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrNotFound
		}
		return err
	}

	_, err = r.posts.UpdateOne(ctx,
		bson.M{"_id": comment.Post},
		bson.M{"$pull": bson.M{"comments": comment.ID}},
	)
	return err
}

// DeleteCommentsByPost removes every comment belonging to a deleted post
func (r *MongoCommentRepository) DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) error {
	_, err := r.comments.DeleteMany(ctx, bson.M{"post": postID})
	return err
}
