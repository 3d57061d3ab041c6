package controllers

import (
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
)

// Content length is checked by the service so that create and edit share
// one rule.
type CreateCommentRequest struct {
	PostID   string  `json:"postId" validate:"required,max=100"`
	UserID   string  `json:"userId" validate:"required,max=64"`
	Content  string  `json:"content"`
	ParentID *string `json:"parentId" validate:"nullable,max=64"`
}

type EditCommentRequest struct {
	ID      string `json:"id" validate:"required"`
	UserID  string `json:"userId" validate:"required,max=64"`
	Content string `json:"content"`
}

type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

func (cc *CommentController) Index(c *ctx.Context) {
	postID, ok := required(c, "postId")
	if !ok {
		return
	}

	items, err := cc.comments.List(c.Context(), postID)
	if err != nil {
		fail(c, err, "Comment not found")
		return
	}
	c.SuccessWithMeta(items, count{Count: len(items)})
}

func (cc *CommentController) Store(c *ctx.Context) {
	var in CreateCommentRequest
	if !c.BindJSON(&in) {
		return
	}
	if in.ParentID != nil && *in.ParentID == "" {
		in.ParentID = nil
	}

	comment, err := cc.comments.Create(c.Context(), services.NewComment{
		PostID:   in.PostID,
		UserID:   in.UserID,
		Content:  in.Content,
		ParentID: in.ParentID,
	})
	if err != nil {
		fail(c, err, "Parent comment not found")
		return
	}
	c.Created(comment)
}

func (cc *CommentController) Update(c *ctx.Context) {
	var in EditCommentRequest
	if !c.BindJSON(&in) {
		return
	}

	comment, err := cc.comments.Edit(c.Context(), in.ID, in.UserID, in.Content)
	if err != nil {
		fail(c, err, "Comment not found")
		return
	}
	c.Success(comment)
}

func (cc *CommentController) Destroy(c *ctx.Context) {
	id, ok := required(c, "id")
	if !ok {
		return
	}
	userID, ok := required(c, "userId")
	if !ok {
		return
	}

	n, err := cc.comments.Delete(c.Context(), id, userID)
	if err != nil {
		fail(c, err, "Comment not found")
		return
	}
	c.Success(map[string]any{"id": id, "deleted": n})
}
