package feed

import (
	"context"
	"sync"

	"alumnihub.com/alumni-feed/models"
)

// stubAPI answers every call with the configured value. A gate registered for
// an operation holds the call until a result is sent on it.
type stubAPI struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan error
	errs    map[string]error
	comment models.Comment
	post    models.Post
	posts   []models.Post
	tree    []models.Comment
}

func newStubAPI() *stubAPI {
	return &stubAPI{gates: make(map[string]chan error), errs: make(map[string]error)}
}

// gate makes the next calls of op block until the returned channel yields.
func (s *stubAPI) gate(op string) chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan error, 1)
	s.gates[op] = ch
	return ch
}

func (s *stubAPI) fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

func (s *stubAPI) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubAPI) answer(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	gate, err := s.gates[op], s.errs[op]
	s.mu.Unlock()

	if gate == nil {
		return err
	}
	select {
	case err := <-gate:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubAPI) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.posts, s.answer(ctx, "list_posts")
}

func (s *stubAPI) GetPost(ctx context.Context, postID string) (models.Post, error) {
	return s.post, s.answer(ctx, "get_post")
}

func (s *stubAPI) UpdatePost(ctx context.Context, postID string, patch models.PostPatch) (models.Post, error) {
	return s.post, s.answer(ctx, "update_post")
}

func (s *stubAPI) DeletePost(ctx context.Context, postID string) error {
	return s.answer(ctx, "delete_post")
}

func (s *stubAPI) LikePost(ctx context.Context, postID string) (models.LikeState, error) {
	return models.LikeState{Liked: true}, s.answer(ctx, "like_post")
}

func (s *stubAPI) UnlikePost(ctx context.Context, postID string) (models.LikeState, error) {
	return models.LikeState{}, s.answer(ctx, "unlike_post")
}

func (s *stubAPI) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.tree, s.answer(ctx, "list_comments")
}

func (s *stubAPI) CreateComment(ctx context.Context, postID string, content string) (models.Comment, error) {
	return s.comment, s.answer(ctx, "create_comment")
}

func (s *stubAPI) ReplyComment(ctx context.Context, postID string, parentID string, content string) (models.Comment, error) {
	return s.comment, s.answer(ctx, "reply_comment")
}

func (s *stubAPI) EditComment(ctx context.Context, commentID string, content string) (models.Comment, error) {
	return s.comment, s.answer(ctx, "edit_comment")
}

func (s *stubAPI) DeleteComment(ctx context.Context, commentID string) error {
	return s.answer(ctx, "delete_comment")
}

func (s *stubAPI) LikeComment(ctx context.Context, commentID string) (models.LikeState, error) {
	return models.LikeState{Liked: true}, s.answer(ctx, "like_comment")
}

func (s *stubAPI) UnlikeComment(ctx context.Context, commentID string) (models.LikeState, error) {
	return models.LikeState{}, s.answer(ctx, "unlike_comment")
}
