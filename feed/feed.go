// Package feed runs the post and comment actions of the alumni feed as
// optimistic mutations over the shared query cache.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"alumnihub.com/alumni-feed/cache"
	"alumnihub.com/alumni-feed/models"
	"alumnihub.com/alumni-feed/mutation"
	"alumnihub.com/alumni-feed/services"
)

const tempIDPrefix = "temp-"

// Feed binds one strategy per entity action to a cache and a backend.
type Feed struct {
	api    API
	cache  *cache.Cache
	loader *cache.Loader
	now    func() time.Time
	log    *logrus.Entry

	mu     sync.RWMutex
	author models.Author

	createComment *mutation.Mutation[models.CreateComment, models.Comment]
	replyComment  *mutation.Mutation[models.ReplyComment, models.Comment]
	editComment   *mutation.Mutation[models.EditComment, models.Comment]
	deleteComment *mutation.Mutation[models.CommentRef, struct{}]
	likeComment   *mutation.Mutation[models.CommentRef, models.LikeState]
	unlikeComment *mutation.Mutation[models.CommentRef, models.LikeState]
	likePost      *mutation.Mutation[models.PostRef, models.LikeState]
	unlikePost    *mutation.Mutation[models.PostRef, models.LikeState]
	updatePost    *mutation.Mutation[models.UpdatePost, models.Post]
	deletePost    *mutation.Mutation[models.PostRef, struct{}]
}

type Option func(*Feed)

// WithSession sets the signed-in user shown as the author of temporary comments.
func WithSession(session services.Session) Option {
	return func(f *Feed) {
		f.author = session.Author
	}
}

// WithLoader registers the feed's fetchers on loader so reads and
// invalidations go through the backend.
func WithLoader(loader *cache.Loader) Option {
	return func(f *Feed) {
		f.loader = loader
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(f *Feed) {
		if log != nil {
			f.log = log
		}
	}
}

func New(api API, c *cache.Cache, opts ...Option) *Feed {
	f := &Feed{
		api:   api,
		cache: c,
		now:   time.Now,
		log:   logrus.StandardLogger().WithField("component", "feed"),
	}
	for _, opt := range opts {
		opt(f)
	}

	mlog := mutation.WithLogger(f.log)
	f.createComment = mutation.New[models.CreateComment, models.Comment](c, createComment{api: api, now: f.now}, mlog)
	f.replyComment = mutation.New[models.ReplyComment, models.Comment](c, replyComment{api: api, now: f.now}, mlog)
	f.editComment = mutation.New[models.EditComment, models.Comment](c, editComment{api: api}, mlog)
	f.deleteComment = mutation.New[models.CommentRef, struct{}](c, deleteComment{api: api}, mlog)
	f.likeComment = mutation.New[models.CommentRef, models.LikeState](c, likeComment{api: api, liked: true}, mlog)
	f.unlikeComment = mutation.New[models.CommentRef, models.LikeState](c, likeComment{api: api, liked: false}, mlog)
	f.likePost = mutation.New[models.PostRef, models.LikeState](c, likePost{api: api, liked: true}, mlog)
	f.unlikePost = mutation.New[models.PostRef, models.LikeState](c, likePost{api: api, liked: false}, mlog)
	f.updatePost = mutation.New[models.UpdatePost, models.Post](c, updatePost{api: api}, mlog)
	f.deletePost = mutation.New[models.PostRef, struct{}](c, deletePost{api: api}, mlog)

	if f.loader != nil {
		f.registerFetchers(f.loader)
	}

	return f
}

func (f *Feed) registerFetchers(loader *cache.Loader) {
	loader.Register(cache.PrefixPosts, func(ctx context.Context, _ cache.QueryKey) (any, error) {
		posts, err := f.api.ListPosts(ctx)
		if err != nil {
			return nil, err
		}
		if posts == nil {
			posts = []models.Post{}
		}
		return posts, nil
	})
	loader.Register(cache.PrefixPost, func(ctx context.Context, key cache.QueryKey) (any, error) {
		if len(key) != 2 {
			return nil, fmt.Errorf("fetch %s: malformed key", key)
		}
		return f.api.GetPost(ctx, key[1])
	})
	loader.Register(cache.PrefixComments, func(ctx context.Context, key cache.QueryKey) (any, error) {
		if len(key) != 2 {
			return nil, fmt.Errorf("fetch %s: malformed key", key)
		}
		comments, err := f.api.ListComments(ctx, key[1])
		if err != nil {
			return nil, err
		}
		if comments == nil {
			comments = []models.Comment{}
		}
		return comments, nil
	})
}

// SwitchSession drops every cached entry and makes session the author of
// subsequent temporary comments.
func (f *Feed) SwitchSession(session services.Session) {
	f.mu.Lock()
	f.author = session.Author
	f.mu.Unlock()

	f.cache.Reset()
	f.log.WithField("user_id", session.Author.UserID).Info("session switched, cache reset")
}

func (f *Feed) currentAuthor() models.Author {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.author
}

// Posts returns the feed list, from the cache when it is fresh.
func (f *Feed) Posts(ctx context.Context) ([]models.Post, error) {
	value, err := f.read(ctx, cache.PostsKey())
	return postsOf(value), err
}

// Post returns one post, from the cache when it is fresh.
func (f *Feed) Post(ctx context.Context, postID string) (models.Post, error) {
	value, err := f.read(ctx, cache.PostKey(postID))
	post, _ := value.(models.Post)
	return post, err
}

// Comments returns the comment tree of a post, from the cache when it is fresh.
func (f *Feed) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	value, err := f.read(ctx, cache.CommentsKey(postID))
	return commentsOf(value), err
}

func (f *Feed) read(ctx context.Context, key cache.QueryKey) (any, error) {
	if f.loader == nil {
		return f.cache.Get(key), nil
	}

	return f.loader.Read(ctx, key)
}

func (f *Feed) CreateComment(ctx context.Context, p models.CreateComment, callbacks ...mutation.Callbacks[models.Comment]) (models.Comment, error) {
	if err := models.Validate(p); err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	if p.TempID == "" {
		p.TempID = newTempID()
	}
	if p.Author.UserID == "" {
		p.Author = f.currentAuthor()
	}

	return f.createComment.Start(ctx, p, callbacks...)
}

func (f *Feed) ReplyComment(ctx context.Context, p models.ReplyComment, callbacks ...mutation.Callbacks[models.Comment]) (models.Comment, error) {
	if err := models.Validate(p); err != nil {
		return models.Comment{}, fmt.Errorf("reply comment: %w", err)
	}
	if p.TempID == "" {
		p.TempID = newTempID()
	}
	if p.Author.UserID == "" {
		p.Author = f.currentAuthor()
	}

	return f.replyComment.Start(ctx, p, callbacks...)
}

func (f *Feed) EditComment(ctx context.Context, p models.EditComment, callbacks ...mutation.Callbacks[models.Comment]) (models.Comment, error) {
	if err := models.Validate(p); err != nil {
		return models.Comment{}, fmt.Errorf("edit comment: %w", err)
	}

	return f.editComment.Start(ctx, p, callbacks...)
}

func (f *Feed) DeleteComment(ctx context.Context, p models.CommentRef, callbacks ...mutation.Callbacks[struct{}]) error {
	if err := models.Validate(p); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	_, err := f.deleteComment.Start(ctx, p, callbacks...)
	return err
}

func (f *Feed) LikeComment(ctx context.Context, p models.CommentRef, callbacks ...mutation.Callbacks[models.LikeState]) (models.LikeState, error) {
	if err := models.Validate(p); err != nil {
		return models.LikeState{}, fmt.Errorf("like comment: %w", err)
	}

	return f.likeComment.Start(ctx, p, callbacks...)
}

func (f *Feed) UnlikeComment(ctx context.Context, p models.CommentRef, callbacks ...mutation.Callbacks[models.LikeState]) (models.LikeState, error) {
	if err := models.Validate(p); err != nil {
		return models.LikeState{}, fmt.Errorf("unlike comment: %w", err)
	}

	return f.unlikeComment.Start(ctx, p, callbacks...)
}

func (f *Feed) LikePost(ctx context.Context, p models.PostRef, callbacks ...mutation.Callbacks[models.LikeState]) (models.LikeState, error) {
	if err := models.Validate(p); err != nil {
		return models.LikeState{}, fmt.Errorf("like post: %w", err)
	}

	return f.likePost.Start(ctx, p, callbacks...)
}

func (f *Feed) UnlikePost(ctx context.Context, p models.PostRef, callbacks ...mutation.Callbacks[models.LikeState]) (models.LikeState, error) {
	if err := models.Validate(p); err != nil {
		return models.LikeState{}, fmt.Errorf("unlike post: %w", err)
	}

	return f.unlikePost.Start(ctx, p, callbacks...)
}

func (f *Feed) UpdatePost(ctx context.Context, p models.UpdatePost, callbacks ...mutation.Callbacks[models.Post]) (models.Post, error) {
	if err := models.Validate(p); err != nil {
		return models.Post{}, fmt.Errorf("update post: %w", err)
	}

	return f.updatePost.Start(ctx, p, callbacks...)
}

func (f *Feed) DeletePost(ctx context.Context, p models.PostRef, callbacks ...mutation.Callbacks[struct{}]) error {
	if err := models.Validate(p); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	_, err := f.deletePost.Start(ctx, p, callbacks...)
	return err
}

func newTempID() string {
	return tempIDPrefix + uuid.NewString()
}
