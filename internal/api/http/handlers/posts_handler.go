package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/auth"
	"github.com/spec-kit/blog-service/internal/service"
)

// PostsHandler exposes posts and their comments.
type PostsHandler struct {
	posts    *service.PostService
	comments *service.CommentService
}

// NewPostsHandler constructs handler.
func NewPostsHandler(posts *service.PostService, comments *service.CommentService) *PostsHandler {
	return &PostsHandler{posts: posts, comments: comments}
}

func postInput(req dto.PostRequest) service.PostInput {
	return service.PostInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Content:     req.Content,
		Excerpt:     req.Excerpt,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
	}
}

// List handles GET /api/posts.
func (h *PostsHandler) List(c *fiber.Ctx) error {
	posts, err := h.posts.ListPublished(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, dto.NewPostResponse(&posts[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /api/posts/:id, where :id is an id or a slug.
func (h *PostsHandler) Get(c *fiber.Ctx) error {
	viewer, _ := auth.IdentityFromFiber(c)
	post, err := h.posts.Get(c.UserContext(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Create handles POST /api/posts.
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	var req dto.PostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	actor, _ := auth.IdentityFromFiber(c)
	post, err := h.posts.Create(c.UserContext(), actor, postInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Update handles PUT /api/posts/:id.
func (h *PostsHandler) Update(c *fiber.Ctx) error {
	var req dto.PostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	actor, _ := auth.IdentityFromFiber(c)
	post, err := h.posts.Update(c.UserContext(), actor, c.Params("id"), postInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPostResponse(post)})
}

// Delete handles DELETE /api/posts/:id.
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	actor, _ := auth.IdentityFromFiber(c)
	if err := h.posts.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListComments handles GET /api/posts/:id/comments.
func (h *PostsHandler) ListComments(c *fiber.Ctx) error {
	viewer, _ := auth.IdentityFromFiber(c)
	comments, err := h.comments.List(c.UserContext(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// AddComment handles POST /api/posts/:id/comments.
func (h *PostsHandler) AddComment(c *fiber.Ctx) error {
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	actor, _ := auth.IdentityFromFiber(c)
	comment, err := h.comments.Add(c.UserContext(), actor, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId.
func (h *PostsHandler) DeleteComment(c *fiber.Ctx) error {
	actor, _ := auth.IdentityFromFiber(c)
	if err := h.comments.Delete(c.UserContext(), actor, c.Params("id"), c.Params("commentId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
