package posts

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"blogapi/auth"
	"blogapi/common"
	"blogapi/models"
)

// AddComment appends a comment by actor to the post and returns the post
// with its full comment sequence. Comments are never edited or removed on
// their own; they go away with their post.
func (m *PostModule) AddComment(ctx context.Context, actor auth.Actor, postID, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", common.ErrValidation)
	}

	comment := models.Comment{Content: content}
	if actor.ID != "" {
		userID := actor.ID
		comment.UserID = &userID
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := findByID(tx, postID)
		if err != nil {
			return err
		}
		comment.PostID = post.ID
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}

	return m.Get(ctx, postID)
}
