package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CreateComment struct {
	PostID  string `json:"post_id" validate:"required"`
	Content string `json:"content" validate:"required,max=2000"`
	// TempID is the placeholder id used until the server assigns one.
	TempID string `json:"-"`
	Author Author `json:"-"`
}

type ReplyComment struct {
	PostID   string `json:"post_id" validate:"required"`
	ParentID string `json:"parent_id" validate:"required"`
	Content  string `json:"content" validate:"required,max=2000"`
	TempID   string `json:"-"`
	Author   Author `json:"-"`
}

type EditComment struct {
	PostID    string `json:"post_id" validate:"required"`
	CommentID string `json:"comment_id" validate:"required"`
	Content   string `json:"content" validate:"required,max=2000"`
}

// CommentRef addresses one comment or reply for delete and like actions.
type CommentRef struct {
	PostID    string `json:"post_id" validate:"required"`
	CommentID string `json:"comment_id" validate:"required"`
}

type PostRef struct {
	PostID string `json:"post_id" validate:"required"`
}

type UpdatePost struct {
	PostID string    `json:"post_id" validate:"required"`
	Patch  PostPatch `json:"patch"`
}

// Validate checks payload struct tags and reports failures wrapped in ErrInvalidPayload.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return fmt.Errorf("%w: %s failed %q", ErrInvalidPayload, first.Namespace(), first.Tag())
	}

	return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
}
