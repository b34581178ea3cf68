package feed

import (
	"context"

	"alumnihub.com/alumni-feed/cache"
	"alumnihub.com/alumni-feed/models"
	"alumnihub.com/alumni-feed/mutation"
)

// postsOf reads a cached post list. Absent entries read as an empty list.
func postsOf(value any) []models.Post {
	posts, _ := value.([]models.Post)
	return posts
}

func postKeys(postID string) []cache.QueryKey {
	return []cache.QueryKey{cache.PostsKey(), cache.PostKey(postID)}
}

// mapPost returns a copy of the list with fn applied to the post with ID postID.
func mapPost(posts []models.Post, postID string, fn func(models.Post) models.Post) []models.Post {
	updated := make([]models.Post, len(posts))
	for idx, post := range posts {
		if post.ID == postID {
			post = fn(post)
		}
		updated[idx] = post
	}

	return updated
}

// applyToPost runs fn on the list item or the singleton depending on key. An
// absent singleton stays absent.
func applyToPost(key cache.QueryKey, value any, postID string, fn func(models.Post) models.Post) any {
	if key.Prefix() == cache.PrefixPosts {
		return mapPost(postsOf(value), postID, fn)
	}
	post, ok := value.(models.Post)
	if !ok {
		return mutation.Tombstone
	}

	return fn(post)
}

// likePost covers both like and unlike; liked is the state being set.
type likePost struct {
	mutation.NoReconcile[models.PostRef, models.LikeState]
	api   API
	liked bool
}

func (s likePost) Name() string {
	if s.liked {
		return "like_post"
	}
	return "unlike_post"
}

func (likePost) Keys(p models.PostRef) []cache.QueryKey {
	return postKeys(p.PostID)
}

func (s likePost) Speculate(key cache.QueryKey, prior any, p models.PostRef) any {
	return applyToPost(key, prior, p.PostID, func(post models.Post) models.Post {
		return post.WithLike(likeDelta(s.liked), s.liked)
	})
}

func (s likePost) Call(ctx context.Context, p models.PostRef) (models.LikeState, error) {
	if s.liked {
		return s.api.LikePost(ctx, p.PostID)
	}
	return s.api.UnlikePost(ctx, p.PostID)
}

type updatePost struct {
	api API
}

func (updatePost) Name() string { return "update_post" }

func (updatePost) Keys(p models.UpdatePost) []cache.QueryKey {
	return postKeys(p.PostID)
}

func (updatePost) Speculate(key cache.QueryKey, prior any, p models.UpdatePost) any {
	return applyToPost(key, prior, p.PostID, p.Patch.Apply)
}

func (s updatePost) Call(ctx context.Context, p models.UpdatePost) (models.Post, error) {
	return s.api.UpdatePost(ctx, p.PostID, p.Patch)
}

// Reconcile writes the server's copy of the post. Viewer-specific fields the
// backend may omit from an update response are kept from the cached post.
func (updatePost) Reconcile(key cache.QueryKey, current any, p models.UpdatePost, saved models.Post) any {
	if saved.ID != p.PostID {
		return mutation.Keep
	}

	return applyToPost(key, current, p.PostID, func(cached models.Post) models.Post {
		merged := saved.Clone()
		merged.HasLiked = cached.HasLiked
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = cached.CreatedAt
		}
		return merged
	})
}

type deletePost struct {
	mutation.NoReconcile[models.PostRef, struct{}]
	api API
}

func (deletePost) Name() string { return "delete_post" }

func (deletePost) Keys(p models.PostRef) []cache.QueryKey {
	return postKeys(p.PostID)
}

func (deletePost) Speculate(key cache.QueryKey, prior any, p models.PostRef) any {
	if key.Prefix() != cache.PrefixPosts {
		return mutation.Tombstone
	}

	posts := postsOf(prior)
	kept := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if post.ID != p.PostID {
			kept = append(kept, post)
		}
	}

	return kept
}

func (s deletePost) Call(ctx context.Context, p models.PostRef) (struct{}, error) {
	return struct{}{}, s.api.DeletePost(ctx, p.PostID)
}

// SettleKeys skips the deleted singleton so it is not fetched again.
// Commit drops the comment tree of the deleted post.
func (deletePost) Commit(tx cache.Txn, p models.PostRef, _ struct{}) {
	tx.Remove(cache.CommentsKey(p.PostID))
}

func (deletePost) SettleKeys(models.PostRef) []cache.QueryKey {
	return []cache.QueryKey{cache.PostsKey()}
}
