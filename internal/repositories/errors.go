package repositories

import "errors"

// Sentinel errors translated to HTTP statuses at the handler layer.
var (
	ErrNotFound              = errors.New("not found")
	ErrUserExists            = errors.New("username or email already taken")
	ErrSelfFollow            = errors.New("cannot follow yourself")
	ErrAlreadyFollowing      = errors.New("already following this user")
	ErrNotFollowing          = errors.New("not following this user")
	ErrAlreadyLiked          = errors.New("post already liked")
	ErrNotLiked              = errors.New("post not liked")
	ErrDuplicateNotification = errors.New("notification already exists")
)
