package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/repositories"
	"github.com/shashiranjanraj/faultline/app/store"
)

type NewComment struct {
	PostID   string
	UserID   string
	Content  string
	ParentID *string
}

type CommentService struct {
	store *store.Store
}

func NewCommentService(s *store.Store) *CommentService {
	return &CommentService{store: s}
}

// CheckContent enforces the comment body rules: non-blank once trimmed, and
// at most MaxCommentRunes as sent.
func CheckContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Fields: map[string]string{"content": "The content field is required."}}
	}
	if utf8.RuneCountInString(content) > models.MaxCommentRunes {
		return &ValidationError{Fields: map[string]string{
			"content": fmt.Sprintf("The content must not exceed %d characters.", models.MaxCommentRunes),
		}}
	}
	return nil
}

// List returns a post's comments, oldest first.
func (s *CommentService) List(ctx context.Context, postID string) ([]models.Comment, error) {
	res, err := s.store.Comments.FindMany(ctx, store.Query[models.Comment]{
		Where: map[string]any{"postId": postID},
		Sort:  store.Oldest(func(c models.Comment) int64 { return c.CreatedAt.UnixNano() }),
	})
	if err != nil {
		return nil, err
	}
	return repositories.Items(ctx, s.store.Comments.Name(), res), nil
}

func (s *CommentService) Create(ctx context.Context, in NewComment) (models.Comment, error) {
	if err := CheckContent(in.Content); err != nil {
		return models.Comment{}, err
	}
	if in.ParentID != nil {
		parent, err := s.store.Comments.FindUnique(ctx, *in.ParentID)
		if err != nil {
			return models.Comment{}, err
		}
		if parent == nil || parent.PostID != in.PostID {
			return models.Comment{}, fmt.Errorf("%w: parent comment %s", ErrNotFound, *in.ParentID)
		}
	}

	return s.store.Comments.Create(ctx, models.Comment{
		PostID:      in.PostID,
		UserID:      in.UserID,
		ParentID:    in.ParentID,
		Content:     in.Content,
		ContentHTML: html.EscapeString(in.Content),
		CreatedAt:   s.store.Now(),
	})
}

// Edit replaces the content of a comment written by userID.
func (s *CommentService) Edit(ctx context.Context, id, userID, content string) (models.Comment, error) {
	if err := CheckContent(content); err != nil {
		return models.Comment{}, err
	}
	if _, err := s.owned(ctx, id, userID); err != nil {
		return models.Comment{}, err
	}
	return s.store.Comments.Update(ctx, id, map[string]any{
		"content":     content,
		"contentHtml": html.EscapeString(content),
		"editedAt":    s.store.Now(),
	})
}

// Delete removes a comment written by userID with every reply beneath it, and
// returns how many records went.
func (s *CommentService) Delete(ctx context.Context, id, userID string) (int, error) {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return 0, err
	}
	return s.store.Comments.DeleteTree(ctx, id, func(c models.Comment) string {
		if c.ParentID == nil {
			return ""
		}
		return *c.ParentID
	})
}

func (s *CommentService) owned(ctx context.Context, id, userID string) (*models.Comment, error) {
	c, err := s.store.Comments.FindUnique(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: comment %s", ErrNotFound, id)
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("%w: comment %s belongs to another user", ErrForbidden, id)
	}
	return c, nil
}
