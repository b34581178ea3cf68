package feed

import (
	"context"
	"slices"
	"time"

	"alumnihub.com/alumni-feed/cache"
	"alumnihub.com/alumni-feed/commenttree"
	"alumnihub.com/alumni-feed/models"
	"alumnihub.com/alumni-feed/mutation"
)

// commentsOf reads a cached comment tree. Absent entries read as an empty tree.
func commentsOf(value any) []models.Comment {
	tree, _ := value.([]models.Comment)
	return tree
}

type createComment struct {
	api API
	now func() time.Time
}

func (createComment) Name() string { return "create_comment" }

func (createComment) Keys(p models.CreateComment) []cache.QueryKey {
	return []cache.QueryKey{cache.CommentsKey(p.PostID)}
}

func (s createComment) Speculate(_ cache.QueryKey, prior any, p models.CreateComment) any {
	temp := models.Comment{
		ID:          p.TempID,
		PostID:      p.PostID,
		Content:     p.Content,
		Author:      p.Author,
		CreatedAt:   s.now(),
		IsTemporary: true,
	}

	return append(slices.Clone(commentsOf(prior)), temp)
}

func (s createComment) Call(ctx context.Context, p models.CreateComment) (models.Comment, error) {
	return s.api.CreateComment(ctx, p.PostID, p.Content)
}

// Reconcile swaps the temporary comment for the server's. A response without
// an ID leaves the temporary node for the next refetch to replace.
func (createComment) Reconcile(_ cache.QueryKey, current any, p models.CreateComment, created models.Comment) any {
	if created.ID == "" {
		return mutation.Keep
	}
	tree := commentsOf(current)
	if created.PostID == "" {
		created.PostID = p.PostID
	}
	if _, ok := commenttree.Find(tree, p.TempID); ok {
		return commenttree.ReplaceNode(tree, "", p.TempID, created)
	}
	if _, ok := commenttree.Find(tree, created.ID); ok {
		return mutation.Keep
	}

	return append(slices.Clone(tree), created)
}

type replyComment struct {
	api API
	now func() time.Time
}

func (replyComment) Name() string { return "reply_comment" }

func (replyComment) Keys(p models.ReplyComment) []cache.QueryKey {
	return []cache.QueryKey{cache.CommentsKey(p.PostID)}
}

func (s replyComment) Speculate(_ cache.QueryKey, prior any, p models.ReplyComment) any {
	temp := models.Comment{
		ID:          p.TempID,
		PostID:      p.PostID,
		Content:     p.Content,
		Author:      p.Author,
		CreatedAt:   s.now(),
		IsTemporary: true,
	}

	return commenttree.InsertReply(commentsOf(prior), p.ParentID, temp)
}

func (s replyComment) Call(ctx context.Context, p models.ReplyComment) (models.Comment, error) {
	return s.api.ReplyComment(ctx, p.PostID, p.ParentID, p.Content)
}

// Reconcile swaps the temporary reply for the server's. When the parent was
// removed in the meantime, or the response carries no ID, the tree is kept.
func (replyComment) Reconcile(_ cache.QueryKey, current any, p models.ReplyComment, created models.Comment) any {
	tree := commentsOf(current)
	if created.ID == "" {
		return mutation.Keep
	}
	if _, ok := commenttree.Find(tree, p.TempID); !ok {
		return mutation.Keep
	}
	if created.PostID == "" {
		created.PostID = p.PostID
	}

	return commenttree.ReplaceNode(tree, p.ParentID, p.TempID, created)
}

type editComment struct {
	mutation.NoReconcile[models.EditComment, models.Comment]
	api API
}

func (editComment) Name() string { return "edit_comment" }

func (editComment) Keys(p models.EditComment) []cache.QueryKey {
	return []cache.QueryKey{cache.CommentsKey(p.PostID)}
}

func (editComment) Speculate(_ cache.QueryKey, prior any, p models.EditComment) any {
	return commenttree.EditContent(commentsOf(prior), p.CommentID, p.Content)
}

func (s editComment) Call(ctx context.Context, p models.EditComment) (models.Comment, error) {
	return s.api.EditComment(ctx, p.CommentID, p.Content)
}

type deleteComment struct {
	mutation.NoReconcile[models.CommentRef, struct{}]
	api API
}

func (deleteComment) Name() string { return "delete_comment" }

func (deleteComment) Keys(p models.CommentRef) []cache.QueryKey {
	return []cache.QueryKey{cache.CommentsKey(p.PostID)}
}

func (deleteComment) Speculate(_ cache.QueryKey, prior any, p models.CommentRef) any {
	return commenttree.RemoveNode(commentsOf(prior), p.CommentID)
}

func (s deleteComment) Call(ctx context.Context, p models.CommentRef) (struct{}, error) {
	return struct{}{}, s.api.DeleteComment(ctx, p.CommentID)
}

// likeComment covers both like and unlike; liked is the state being set.
type likeComment struct {
	mutation.NoReconcile[models.CommentRef, models.LikeState]
	api   API
	liked bool
}

func (s likeComment) Name() string {
	if s.liked {
		return "like_comment"
	}
	return "unlike_comment"
}

func (likeComment) Keys(p models.CommentRef) []cache.QueryKey {
	return []cache.QueryKey{cache.CommentsKey(p.PostID)}
}

func (s likeComment) Speculate(_ cache.QueryKey, prior any, p models.CommentRef) any {
	return commenttree.AdjustLike(commentsOf(prior), p.CommentID, likeDelta(s.liked), s.liked)
}

func (s likeComment) Call(ctx context.Context, p models.CommentRef) (models.LikeState, error) {
	if s.liked {
		return s.api.LikeComment(ctx, p.CommentID)
	}
	return s.api.UnlikeComment(ctx, p.CommentID)
}

func likeDelta(liked bool) int {
	if liked {
		return 1
	}
	return -1
}
