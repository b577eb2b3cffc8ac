package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/plumehq/plume/backend/internal/middleware"
	"github.com/plumehq/plume/backend/internal/models"
	"github.com/plumehq/plume/backend/internal/notify"
	"github.com/plumehq/plume/backend/internal/realtime"
	"github.com/plumehq/plume/backend/internal/repositories"
)

// Repository fakes with overridable behavior per method. Unset methods return
// ErrNotFound so a test only wires what it exercises.

type fakeUserRepo struct {
	createUser        func(ctx context.Context, user *models.User) error
	getUserByID       func(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	getUserByEmail    func(ctx context.Context, email string) (*models.User, error)
	getUserByUsername func(ctx context.Context, username string) (*models.User, error)
	updateProfile     func(ctx context.Context, id primitive.ObjectID, req *models.UpdateProfileRequest) (*models.User, error)
	searchUsers       func(ctx context.Context, query string, limit int64) ([]models.UserCompact, error)
	follow            func(ctx context.Context, followerID, targetID primitive.ObjectID) error
	unfollow          func(ctx context.Context, followerID, targetID primitive.ObjectID) error
	toggleBookmark    func(ctx context.Context, userID, postID primitive.ObjectID) (bool, error)
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	if f.createUser == nil {
		return repositories.ErrNotFound
	}
	return f.createUser(ctx, user)
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if f.getUserByID == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getUserByID(ctx, id)
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getUserByEmail == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getUserByEmail(ctx, email)
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getUserByUsername == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getUserByUsername(ctx, username)
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id primitive.ObjectID, req *models.UpdateProfileRequest) (*models.User, error) {
	if f.updateProfile == nil {
		return nil, repositories.ErrNotFound
	}
	return f.updateProfile(ctx, id, req)
}

func (f *fakeUserRepo) SearchUsers(ctx context.Context, query string, limit int64) ([]models.UserCompact, error) {
	if f.searchUsers == nil {
		return nil, repositories.ErrNotFound
	}
	return f.searchUsers(ctx, query, limit)
}

func (f *fakeUserRepo) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if f.follow == nil {
		return repositories.ErrNotFound
	}
	return f.follow(ctx, followerID, targetID)
}

func (f *fakeUserRepo) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if f.unfollow == nil {
		return repositories.ErrNotFound
	}
	return f.unfollow(ctx, followerID, targetID)
}

func (f *fakeUserRepo) ToggleBookmark(ctx context.Context, userID, postID primitive.ObjectID) (bool, error) {
	if f.toggleBookmark == nil {
		return false, repositories.ErrNotFound
	}
	return f.toggleBookmark(ctx, userID, postID)
}

type fakePostRepo struct {
	createPost       func(ctx context.Context, post *models.Post) error
	getPostByID      func(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	getEnrichedPost  func(ctx context.Context, id primitive.ObjectID) (*repositories.FeedPost, error)
	getFeed          func(ctx context.Context, params repositories.FeedParams) ([]repositories.FeedPost, error)
	getPostsByAuthor func(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]repositories.FeedPost, error)
	updatePost       func(ctx context.Context, id primitive.ObjectID, update bson.M) error
	deletePost       func(ctx context.Context, id primitive.ObjectID) error
	likePost         func(ctx context.Context, postID, userID primitive.ObjectID) error
	unlikePost       func(ctx context.Context, postID, userID primitive.ObjectID) error
}

func (f *fakePostRepo) CreatePost(ctx context.Context, post *models.Post) error {
	if f.createPost == nil {
		return repositories.ErrNotFound
	}
	return f.createPost(ctx, post)
}

func (f *fakePostRepo) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	if f.getPostByID == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getPostByID(ctx, id)
}

func (f *fakePostRepo) GetEnrichedPost(ctx context.Context, id primitive.ObjectID) (*repositories.FeedPost, error) {
	if f.getEnrichedPost == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getEnrichedPost(ctx, id)
}

func (f *fakePostRepo) GetFeed(ctx context.Context, params repositories.FeedParams) ([]repositories.FeedPost, error) {
	if f.getFeed == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getFeed(ctx, params)
}

func (f *fakePostRepo) GetPostsByAuthor(ctx context.Context, authorID primitive.ObjectID, skip, limit int64) ([]repositories.FeedPost, error) {
	if f.getPostsByAuthor == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getPostsByAuthor(ctx, authorID, skip, limit)
}

func (f *fakePostRepo) UpdatePost(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	if f.updatePost == nil {
		return repositories.ErrNotFound
	}
	return f.updatePost(ctx, id, update)
}

func (f *fakePostRepo) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	if f.deletePost == nil {
		return repositories.ErrNotFound
	}
	return f.deletePost(ctx, id)
}

func (f *fakePostRepo) LikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	if f.likePost == nil {
		return repositories.ErrNotFound
	}
	return f.likePost(ctx, postID, userID)
}

func (f *fakePostRepo) UnlikePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	if f.unlikePost == nil {
		return repositories.ErrNotFound
	}
	return f.unlikePost(ctx, postID, userID)
}

type fakeCommentRepo struct {
	createComment        func(ctx context.Context, comment *models.Comment) error
	getCommentByID       func(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	deleteComment        func(ctx context.Context, id primitive.ObjectID) error
	deleteCommentsByPost func(ctx context.Context, postID primitive.ObjectID) error
}

func (f *fakeCommentRepo) CreateComment(ctx context.Context, comment *models.Comment) error {
	if f.createComment == nil {
		return repositories.ErrNotFound
	}
	return f.createComment(ctx, comment)
}

func (f *fakeCommentRepo) GetCommentByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	if f.getCommentByID == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getCommentByID(ctx, id)
}

func (f *fakeCommentRepo) DeleteComment(ctx context.Context, id primitive.ObjectID) error {
	if f.deleteComment == nil {
		return repositories.ErrNotFound
	}
	return f.deleteComment(ctx, id)
}

func (f *fakeCommentRepo) DeleteCommentsByPost(ctx context.Context, postID primitive.ObjectID) error {
	if f.deleteCommentsByPost == nil {
		return repositories.ErrNotFound
	}
	return f.deleteCommentsByPost(ctx, postID)
}

type fakeNotificationRepo struct {
	createNotification func(ctx context.Context, n *models.Notification) error
	getRecent          func(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]repositories.EnrichedNotification, error)
	getUnreadCount     func(ctx context.Context, recipientID primitive.ObjectID) (int64, error)
	markAsRead         func(ctx context.Context, id, recipientID primitive.ObjectID) error
	markAllAsRead      func(ctx context.Context, recipientID primitive.ObjectID) error
}

func (f *fakeNotificationRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	if f.createNotification == nil {
		return nil
	}
	return f.createNotification(ctx, n)
}

func (f *fakeNotificationRepo) GetRecent(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]repositories.EnrichedNotification, error) {
	if f.getRecent == nil {
		return nil, repositories.ErrNotFound
	}
	return f.getRecent(ctx, recipientID, limit)
}

func (f *fakeNotificationRepo) GetUnreadCount(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	if f.getUnreadCount == nil {
		return 0, repositories.ErrNotFound
	}
	return f.getUnreadCount(ctx, recipientID)
}

func (f *fakeNotificationRepo) MarkAsRead(ctx context.Context, id, recipientID primitive.ObjectID) error {
	if f.markAsRead == nil {
		return repositories.ErrNotFound
	}
	return f.markAsRead(ctx, id, recipientID)
}

func (f *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, recipientID primitive.ObjectID) error {
	if f.markAllAsRead == nil {
		return repositories.ErrNotFound
	}
	return f.markAllAsRead(ctx, recipientID)
}

// testEngine wires a real engine to inert collaborators so handlers can
// dispatch without a database or connections behind them.
func testEngine() *notify.Engine {
	return notify.NewEngine(
		&fakeNotificationRepo{},
		&fakeUserRepo{},
		realtime.NewHub(zap.NewNop()),
		zap.NewNop(),
	)
}

type requestOpts struct {
	method string
	target string
	body   string
	viewer *models.User
	role   string
	params map[string]string
}

func newTestContext(t *testing.T, opts requestOpts) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if opts.body != "" {
		req = httptest.NewRequest(opts.method, opts.target, strings.NewReader(opts.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(opts.method, opts.target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if opts.viewer != nil {
		c.Set(middleware.ContextUserID, opts.viewer.ID.Hex())
		c.Set(middleware.ContextUsername, opts.viewer.Username)
		role := opts.role
		if role == "" {
			role = models.RoleUser
		}
		c.Set(middleware.ContextRole, role)
	}
	names := make([]string, 0, len(opts.params))
	values := make([]string, 0, len(opts.params))
	for name, value := range opts.params {
		names = append(names, name)
		values = append(values, value)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c, rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}
