package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CommentsHandler serves ticket comment threads.
type CommentsHandler struct {
	service *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// List GET /tickets/:ticketId/comments.
func (h *CommentsHandler) List(c *fiber.Ctx) error {
	ticketID, err := parseID(c, "ticketId")
	if err != nil {
		return err
	}
	comments, err := h.service.List(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewCommentList(comments))
}

// Create POST /tickets/:ticketId/comments.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	ticketID, err := parseID(c, "ticketId")
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}

	comment, err := h.service.Add(c.UserContext(), ticketID, req.Content, auth.CallerFromContext(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCommentResponse(comment))
}
