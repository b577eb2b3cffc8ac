package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlaceholderImage is used when a post is created without an image.
const PlaceholderImage = "https://images.plume.app/defaults/post-cover.png"

// Post represents a published article stored in MongoDB.
// Likes is a set (a user id appears at most once); Comments is the ordered
// sequence of comment ids owned by this post.
type Post struct {
	ID         primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Title      string               `json:"title" bson:"title"`
	Content    string               `json:"content" bson:"content"`
	Image      string               `json:"image" bson:"image"`
	Hashtags   []string             `json:"hashtags" bson:"hashtags"`
	Author     primitive.ObjectID   `json:"author" bson:"author"` // immutable after creation
	Likes      []primitive.ObjectID `json:"likes" bson:"likes"`
	Comments   []primitive.ObjectID `json:"comments" bson:"comments"`
	IsArchived bool                 `json:"isArchived" bson:"isArchived"`
	CreatedAt  time.Time            `json:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time            `json:"updated_at" bson:"updatedAt"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title    string   `json:"title" validate:"required,min=1,max=100"`
	Content  string   `json:"content" validate:"required,min=1"`
	Image    string   `json:"image,omitempty" validate:"omitempty,url"`
	Hashtags []string `json:"hashtags,omitempty" validate:"omitempty,dive,min=1,max=50"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Title      string   `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Content    string   `json:"content,omitempty" validate:"omitempty,min=1"`
	Image      string   `json:"image,omitempty" validate:"omitempty,url"`
	Hashtags   []string `json:"hashtags,omitempty" validate:"omitempty,dive,min=1,max=50"`
	IsArchived *bool    `json:"isArchived,omitempty"`
}
