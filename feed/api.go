package feed

import (
	"context"

	"alumnihub.com/alumni-feed/models"
)

// API is the backend surface the feed calls. *services.Client implements it.
type API interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, postID string) (models.Post, error)
	UpdatePost(ctx context.Context, postID string, patch models.PostPatch) (models.Post, error)
	DeletePost(ctx context.Context, postID string) error
	LikePost(ctx context.Context, postID string) (models.LikeState, error)
	UnlikePost(ctx context.Context, postID string) (models.LikeState, error)

	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID string, content string) (models.Comment, error)
	ReplyComment(ctx context.Context, postID string, parentID string, content string) (models.Comment, error)
	EditComment(ctx context.Context, commentID string, content string) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	LikeComment(ctx context.Context, commentID string) (models.LikeState, error)
	UnlikeComment(ctx context.Context, commentID string) (models.LikeState, error)
}
