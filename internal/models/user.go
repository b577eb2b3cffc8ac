package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account stored in MongoDB.
// Followers/Following are kept symmetric across the two documents by the
// follow/unfollow operations; a user never appears in its own sets.
type User struct {
	ID          primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Username    string               `json:"username" bson:"username"`
	Email       string               `json:"email" bson:"email"`
	Password    string               `json:"-" bson:"password"` // bcrypt hash, never serialized to clients
	Bio         string               `json:"bio,omitempty" bson:"bio,omitempty"`
	Pronouns    string               `json:"pronouns,omitempty" bson:"pronouns,omitempty"`
	ProfilePic  string               `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	CoverPic    string               `json:"coverPic,omitempty" bson:"coverPic,omitempty"`
	SocialLinks map[string]string    `json:"socialLinks,omitempty" bson:"socialLinks,omitempty"`
	Role        string               `json:"role" bson:"role"`
	Followers   []primitive.ObjectID `json:"followers" bson:"followers"`
	Following   []primitive.ObjectID `json:"following" bson:"following"`
	Bookmarks   []primitive.ObjectID `json:"bookmarks" bson:"bookmarks"`
	Rewards     int                  `json:"rewards" bson:"rewards"` // reserved, unused
	CreatedAt   time.Time            `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updated_at" bson:"updatedAt"`
}

// UserCompact is the public author/sender shape joined into posts and notifications.
type UserCompact struct {
	ID         primitive.ObjectID `json:"id" bson:"_id"`
	Username   string             `json:"username" bson:"username"`
	ProfilePic string             `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
}

// ToCompact trims a user to its public shape.
func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, ProfilePic: u.ProfilePic}
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RegisterRequest defines the request body for local registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest defines the request body for local authentication
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest defines the request body for profile updates
type UpdateProfileRequest struct {
	Bio         string            `json:"bio,omitempty" validate:"omitempty,max=250"`
	Pronouns    string            `json:"pronouns,omitempty" validate:"omitempty,max=50"`
	ProfilePic  string            `json:"profilePic,omitempty" validate:"omitempty,url"`
	CoverPic    string            `json:"coverPic,omitempty" validate:"omitempty,url"`
	SocialLinks map[string]string `json:"socialLinks,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
