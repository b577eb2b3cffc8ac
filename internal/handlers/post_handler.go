package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plumehq/plume/backend/internal/models"
	"github.com/plumehq/plume/backend/internal/notify"
	"github.com/plumehq/plume/backend/internal/repositories"
)

// PostHandler handles HTTP requests related to posts, likes, and the feed
type PostHandler struct {
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	commentRepository repositories.CommentRepository
	engine            *notify.Engine
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	commentRepo repositories.CommentRepository,
	engine *notify.Engine,
) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		userRepository:    userRepo,
		commentRepository: commentRepo,
		engine:            engine,
	}
}

// GetFeed returns one page of posts in the requested ordering. The viewer is
// optional: anonymous requests simply get no follow boost.
func (h *PostHandler) GetFeed(c echo.Context) error {
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	archived, _ := strconv.ParseBool(c.QueryParam("archived"))

	params := repositories.FeedParams{
		Page:     page,
		Limit:    limit,
		Search:   c.QueryParam("search"),
		Author:   c.QueryParam("author"),
		Archived: archived,
		Sort:     c.QueryParam("sort"),
		Now:      timeNow(),
	}

	if id, ok := viewerID(c); ok {
		viewer, err := h.userRepository.GetUserByID(c.Request().Context(), id)
		if err == nil {
			params.ViewerFollowing = viewer.Following
		}
	}

	posts, err := h.postRepository.GetFeed(c.Request().Context(), params)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"posts": posts}})
}

// GetPost retrieves a single post with author and comments resolved
func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetEnrichedPost(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, post)
}

// GetUserPosts lists a user's posts, newest first
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	authorID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if page < 1 {
		page = repositories.DefaultPage
	}
	if limit < 1 {
		limit = repositories.DefaultLimit
	}

	posts, err := h.postRepository.GetPostsByAuthor(c.Request().Context(), authorID, (page-1)*limit, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"posts": posts}})
}

// CreatePost creates a new post and scans it for mentions
func (h *PostHandler) CreatePost(c echo.Context) error {
	actor, ok := viewerActor(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	post := &models.Post{
		Title:    req.Title,
		Content:  req.Content,
		Image:    req.Image,
		Hashtags: req.Hashtags,
		Author:   actor.ID,
	}

	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The response does not wait on mention notifications.
	h.engine.DispatchMentions(actor, post.Content, post.ID)

	return c.JSON(http.StatusCreated, post)
}

// UpdatePost updates an existing post; author or admin only
func (h *PostHandler) UpdatePost(c echo.Context) error {
	actorID, err := requireViewer(c)
	if err != nil {
		return err
	}

	postID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if post.Author != actorID && !viewerIsAdmin(c) {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}

	update := bson.M{}
	if req.Title != "" {
		update["title"] = req.Title
	}
	if req.Content != "" {
		update["content"] = req.Content
	}
	if req.Image != "" {
		update["image"] = req.Image
	}
	if req.Hashtags != nil {
		update["hashtags"] = req.Hashtags
	}
	if req.IsArchived != nil {
		update["isArchived"] = *req.IsArchived
	}

	if err := h.postRepository.UpdatePost(c.Request().Context(), postID, update); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	updated, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

// DeletePost deletes a post and its comments; author or admin only
func (h *PostHandler) DeletePost(c echo.Context) error {
	actorID, err := requireViewer(c)
	if err != nil {
		return err
	}

	postID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if post.Author != actorID && !viewerIsAdmin(c) {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(c.Request().Context(), postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.commentRepository.DeleteCommentsByPost(c.Request().Context(), postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// LikePost adds the viewer to the post's likes and notifies the author
func (h *PostHandler) LikePost(c echo.Context) error {
	actor, ok := viewerActor(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.postRepository.LikePost(c.Request().Context(), postID, actor.ID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyLiked) {
			return echo.NewHTTPError(http.StatusConflict, "Post already liked")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pid := postID
	h.engine.Dispatch(actor, notify.Event{
		RecipientID: post.Author,
		Type:        models.NotificationLike,
		Post:        &pid,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": true}})
}

// UnlikePost removes the viewer from the post's likes
func (h *PostHandler) UnlikePost(c echo.Context) error {
	actorID, err := requireViewer(c)
	if err != nil {
		return err
	}

	postID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	if err := h.postRepository.UnlikePost(c.Request().Context(), postID, actorID); err != nil {
		if errors.Is(err, repositories.ErrNotLiked) {
			return echo.NewHTTPError(http.StatusConflict, "Post not liked")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"liked": false}})
}

func parseObjectID(raw string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(raw)
}
