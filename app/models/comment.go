package models

import "time"

// MaxCommentRunes bounds comment content as sent.
const MaxCommentRunes = 1000

type Comment struct {
	ID          string     `json:"id"`
	PostID      string     `json:"postId"`
	UserID      string     `json:"userId"`
	ParentID    *string    `json:"parentId"`
	Content     string     `json:"content"`
	ContentHTML string     `json:"contentHtml"`
	CreatedAt   time.Time  `json:"createdAt"`
	EditedAt    *time.Time `json:"editedAt"`
}

func (c Comment) Clone() Comment {
	if c.ParentID != nil {
		p := *c.ParentID
		c.ParentID = &p
	}
	c.EditedAt = cloneTime(c.EditedAt)
	return c
}
