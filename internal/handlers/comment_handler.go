package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/plumehq/plume/backend/internal/models"
	"github.com/plumehq/plume/backend/internal/notify"
	"github.com/plumehq/plume/backend/internal/repositories"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	engine            *notify.Engine
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	engine *notify.Engine,
) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		engine:            engine,
	}
}

// AddComment creates a comment on a post, notifies the post's author, and
// scans the text for mentions.
func (h *CommentHandler) AddComment(c echo.Context) error {
	actor, ok := viewerActor(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid post ID")
	}

	var req models.CreateCommentRequest
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

	comment := &models.Comment{
		Text: req.Text,
		User: actor.ID,
		Post: postID,
	}
	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pid := postID
	h.engine.Dispatch(actor, notify.Event{
		RecipientID: post.Author,
		Type:        models.NotificationComment,
		Post:        &pid,
	})
	h.engine.DispatchMentions(actor, comment.Text, postID)

	return c.JSON(http.StatusCreated, comment)
}

// DeleteComment removes a comment; the comment's author, the post's author,
// or an admin may delete it.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	actorID, err := requireViewer(c)
	if err != nil {
		return err
	}

	commentID, err := parseObjectID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}

	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	allowed := comment.User == actorID || viewerIsAdmin(c)
	if !allowed {
		post, err := h.postRepository.GetPostByID(c.Request().Context(), comment.Post)
		if err == nil && post.Author == actorID {
			allowed = true
		}
	}
	if !allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	}

	if err := h.commentRepository.DeleteComment(c.Request().Context(), commentID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
