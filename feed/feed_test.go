package feed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"alumnihub.com/alumni-feed/cache"
	"alumnihub.com/alumni-feed/commenttree"
	"alumnihub.com/alumni-feed/models"
	"alumnihub.com/alumni-feed/mutation"
	"alumnihub.com/alumni-feed/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// httptest servers in the end-to-end tests leave idle keep-alive readers behind.
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

var (
	errBackend = errors.New("backend unavailable")
	fixedNow   = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	viewer     = models.Author{UserID: "u1", Username: "ada"}
)

func newTestFeed(api API) (*Feed, *cache.Cache) {
	c := cache.New()
	f := New(api, c,
		WithSession(services.Session{Author: viewer}),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f, c
}

func treeAt(c *cache.Cache, postID string) []models.Comment {
	return commentsOf(c.Get(cache.CommentsKey(postID)))
}

func TestCreateCommentHappyPath(t *testing.T) {
	api := newStubAPI()
	api.comment = models.Comment{ID: "S9", Content: "hello"}
	gate := api.gate("create_comment")
	f, c := newTestFeed(api)
	c.Set(cache.CommentsKey("p1"), []models.Comment{})

	run := f.createComment.Go(context.Background(), models.CreateComment{PostID: "p1", Content: "hello", TempID: "T", Author: viewer})

	pending := treeAt(c, "p1")
	require.Len(t, pending, 1)
	assert.Equal(t, "T", pending[0].ID)
	assert.Equal(t, "hello", pending[0].Content)
	assert.True(t, pending[0].IsTemporary)
	assert.Equal(t, viewer, pending[0].Author)
	assert.Equal(t, fixedNow, pending[0].CreatedAt)

	gate <- nil
	_, err := run.Wait()
	require.NoError(t, err)

	assert.Equal(t, []models.Comment{{ID: "S9", PostID: "p1", Content: "hello"}}, treeAt(c, "p1"))
}

func TestCreateCommentAssignsUniqueTempIDs(t *testing.T) {
	api := newStubAPI()
	gate := api.gate("create_comment")
	f, c := newTestFeed(api)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.CreateComment(context.Background(), models.CreateComment{PostID: "p1", Content: "hi"})
			results <- err
		}()
	}

	require.Eventually(t, func() bool { return len(treeAt(c, "p1")) == 2 }, time.Second, 5*time.Millisecond)
	tree := treeAt(c, "p1")
	assert.NotEqual(t, tree[0].ID, tree[1].ID)
	for _, node := range tree {
		assert.True(t, strings.HasPrefix(node.ID, tempIDPrefix), node.ID)
		assert.Equal(t, viewer, node.Author)
	}

	gate <- nil
	gate <- nil
	require.NoError(t, <-results)
	require.NoError(t, <-results)
}

func TestCreateCommentRollsBackToPrior(t *testing.T) {
	api := newStubAPI()
	api.fail("create_comment", errBackend)
	f, c := newTestFeed(api)
	prior := []models.Comment{{ID: "c1", PostID: "p1", Content: "existing", LikeCount: 2}}
	c.Set(cache.CommentsKey("p1"), prior)

	_, err := f.CreateComment(context.Background(), models.CreateComment{PostID: "p1", Content: "hello"})

	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, prior, treeAt(c, "p1"))
}

func TestCreateCommentRejectsInvalidPayload(t *testing.T) {
	api := newStubAPI()
	f, c := newTestFeed(api)

	_, err := f.CreateComment(context.Background(), models.CreateComment{PostID: "p1", Content: ""})

	require.ErrorIs(t, err, models.ErrInvalidPayload)
	assert.Empty(t, api.called())
	_, found := c.Lookup(cache.CommentsKey("p1"))
	assert.False(t, found)
}

func TestReplyThenDeleteParent(t *testing.T) {
	api := newStubAPI()
	api.comment = models.Comment{ID: "S1", PostID: "p1", Content: "reply"}
	replyGate := api.gate("reply_comment")
	f, c := newTestFeed(api)
	c.Set(cache.CommentsKey("p1"), []models.Comment{{ID: "P", PostID: "p1"}, {ID: "Q", PostID: "p1"}})

	reply := f.replyComment.Go(context.Background(), models.ReplyComment{PostID: "p1", ParentID: "P", Content: "reply", TempID: "R"})
	_, found := commenttree.Find(treeAt(c, "p1"), "R")
	require.True(t, found)

	require.NoError(t, f.DeleteComment(context.Background(), models.CommentRef{PostID: "p1", CommentID: "P"}))
	assert.Equal(t, []models.Comment{{ID: "Q", PostID: "p1"}}, treeAt(c, "p1"))

	replyGate <- nil
	_, err := reply.Wait()
	require.NoError(t, err)

	// The confirmed reply has no parent left to attach to.
	assert.Equal(t, []models.Comment{{ID: "Q", PostID: "p1"}}, treeAt(c, "p1"))
}

func TestReplyReplacesTemporaryNode(t *testing.T) {
	api := newStubAPI()
	api.comment = models.Comment{ID: "S1", Content: "reply"}
	f, c := newTestFeed(api)
	c.Set(cache.CommentsKey("p1"), []models.Comment{{ID: "P", Replies: []models.Comment{{ID: "older"}}}})

	created, err := f.ReplyComment(context.Background(), models.ReplyComment{PostID: "p1", ParentID: "P", Content: "reply", TempID: "temp-r"})
	require.NoError(t, err)
	assert.Equal(t, "S1", created.ID)

	tree := treeAt(c, "p1")
	assert.Equal(t, []string{"older", "S1"}, []string{tree[0].Replies[0].ID, tree[0].Replies[1].ID})
	assert.Equal(t, "p1", tree[0].Replies[1].PostID)
	assert.Equal(t, 3, commenttree.Count(tree))
}

func TestEditAndDeleteCommentRollback(t *testing.T) {
	prior := []models.Comment{{ID: "a", Content: "old", Replies: []models.Comment{{ID: "a1", Content: "deep"}}}}

	t.Run("edit", func(t *testing.T) {
		api := newStubAPI()
		api.fail("edit_comment", errBackend)
		f, c := newTestFeed(api)
		c.Set(cache.CommentsKey("p1"), prior)

		_, err := f.EditComment(context.Background(), models.EditComment{PostID: "p1", CommentID: "a1", Content: "new"})

		require.ErrorIs(t, err, errBackend)
		assert.Equal(t, prior, treeAt(c, "p1"))
	})

	t.Run("delete", func(t *testing.T) {
		api := newStubAPI()
		api.fail("delete_comment", errBackend)
		f, c := newTestFeed(api)
		c.Set(cache.CommentsKey("p1"), prior)

		err := f.DeleteComment(context.Background(), models.CommentRef{PostID: "p1", CommentID: "a"})

		require.ErrorIs(t, err, errBackend)
		assert.Equal(t, prior, treeAt(c, "p1"))
	})
}

func TestLikeUnlikeCommentRace(t *testing.T) {
	prior := []models.Comment{{ID: "c1", LikeCount: 3, HasLike: false}}

	tests := []struct {
		name      string
		likeErr   error
		unlikeErr error
		wantCount int
		wantLiked bool
	}{
		{name: "both confirmed", wantCount: 3, wantLiked: false},
		{name: "like rejected", likeErr: errBackend, wantCount: 3, wantLiked: false},
		{name: "unlike rejected", unlikeErr: errBackend, wantCount: 4, wantLiked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newStubAPI()
			likeGate := api.gate("like_comment")
			unlikeGate := api.gate("unlike_comment")
			f, c := newTestFeed(api)
			c.Set(cache.CommentsKey("p1"), prior)
			ref := models.CommentRef{PostID: "p1", CommentID: "c1"}

			like := f.likeComment.Go(context.Background(), ref)
			node, _ := commenttree.Find(treeAt(c, "p1"), "c1")
			assert.Equal(t, 4, node.LikeCount)
			assert.True(t, node.HasLike)

			unlike := f.unlikeComment.Go(context.Background(), ref)
			node, _ = commenttree.Find(treeAt(c, "p1"), "c1")
			assert.Equal(t, 3, node.LikeCount)
			assert.False(t, node.HasLike)

			likeGate <- tt.likeErr
			_, err := like.Wait()
			assert.ErrorIs(t, err, tt.likeErr)
			unlikeGate <- tt.unlikeErr
			_, err = unlike.Wait()
			assert.ErrorIs(t, err, tt.unlikeErr)

			node, _ = commenttree.Find(treeAt(c, "p1"), "c1")
			assert.Equal(t, tt.wantCount, node.LikeCount)
			assert.Equal(t, tt.wantLiked, node.HasLike)
		})
	}
}

func TestLikePostUpdatesListAndSingleton(t *testing.T) {
	api := newStubAPI()
	gate := api.gate("like_post")
	f, c := newTestFeed(api)
	posts := []models.Post{{ID: "p1", LikesCount: 1}, {ID: "p2", LikesCount: 7}}
	c.Set(cache.PostsKey(), posts)
	c.Set(cache.PostKey("p1"), posts[0])

	run := f.likePost.Go(context.Background(), models.PostRef{PostID: "p1"})

	list := postsOf(c.Get(cache.PostsKey()))
	assert.Equal(t, 2, list[0].LikesCount)
	assert.True(t, list[0].HasLiked)
	assert.Equal(t, posts[1], list[1])
	assert.Equal(t, list[0], c.Get(cache.PostKey("p1")))

	gate <- errBackend
	_, err := run.Wait()
	require.ErrorIs(t, err, errBackend)

	assert.Equal(t, posts, c.Get(cache.PostsKey()))
	assert.Equal(t, posts[0], c.Get(cache.PostKey("p1")))
}

func TestUnlikePostNeverNegative(t *testing.T) {
	api := newStubAPI()
	f, c := newTestFeed(api)
	c.Set(cache.PostsKey(), []models.Post{{ID: "p1", LikesCount: 0}})

	_, err := f.UnlikePost(context.Background(), models.PostRef{PostID: "p1"})
	require.NoError(t, err)

	assert.Equal(t, 0, postsOf(c.Get(cache.PostsKey()))[0].LikesCount)
	_, found := c.Lookup(cache.PostKey("p1"))
	assert.False(t, found, "an absent singleton stays absent")
}

func TestUpdatePostMergesServerCopy(t *testing.T) {
	api := newStubAPI()
	api.post = models.Post{ID: "p1", Title: "Server title", Content: "server", LikesCount: 9}
	gate := api.gate("update_post")
	f, c := newTestFeed(api)
	cached := models.Post{ID: "p1", Title: "Old", Content: "body", LikesCount: 8, HasLiked: true, CreatedAt: fixedNow}
	c.Set(cache.PostsKey(), []models.Post{cached})
	c.Set(cache.PostKey("p1"), cached)

	title := "New"
	done := make(chan error, 1)
	go func() {
		_, err := f.UpdatePost(context.Background(), models.UpdatePost{PostID: "p1", Patch: models.PostPatch{Title: &title}})
		done <- err
	}()

	require.Eventually(t, func() bool {
		post, _ := c.Get(cache.PostKey("p1")).(models.Post)
		return post.Title == "New"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "New", postsOf(c.Get(cache.PostsKey()))[0].Title)
	assert.Equal(t, "body", postsOf(c.Get(cache.PostsKey()))[0].Content)

	gate <- nil
	require.NoError(t, <-done)

	want := api.post
	want.HasLiked = true
	want.CreatedAt = fixedNow
	assert.Equal(t, want, c.Get(cache.PostKey("p1")))
	assert.Equal(t, []models.Post{want}, c.Get(cache.PostsKey()))
}

func TestUpdatePostRejectsInvalidPatch(t *testing.T) {
	api := newStubAPI()
	f, _ := newTestFeed(api)
	empty := ""

	_, err := f.UpdatePost(context.Background(), models.UpdatePost{PostID: "p1", Patch: models.PostPatch{Title: &empty}})

	require.ErrorIs(t, err, models.ErrInvalidPayload)
	assert.Empty(t, api.called())
}

type recordingRefetcher struct {
	keys []string
}

func (r *recordingRefetcher) Refetch(key cache.QueryKey) {
	r.keys = append(r.keys, key.String())
}

func TestDeletePostTombstonesSingleton(t *testing.T) {
	api := newStubAPI()
	refetcher := &recordingRefetcher{}
	c := cache.New(cache.WithRefetcher(refetcher))
	f := New(api, c)
	c.Set(cache.PostsKey(), []models.Post{{ID: "p1"}, {ID: "p2"}})
	c.Set(cache.PostKey("p1"), models.Post{ID: "p1"})
	c.Set(cache.CommentsKey("p1"), []models.Comment{{ID: "c1", PostID: "p1"}})
	c.Set(cache.CommentsKey("p2"), []models.Comment{{ID: "c2", PostID: "p2"}})

	require.NoError(t, f.DeletePost(context.Background(), models.PostRef{PostID: "p1"}))

	assert.Equal(t, []models.Post{{ID: "p2"}}, c.Get(cache.PostsKey()))
	_, found := c.Lookup(cache.PostKey("p1"))
	assert.False(t, found)
	_, found = c.Lookup(cache.CommentsKey("p1"))
	assert.False(t, found, "comments of the deleted post are dropped")
	assert.Equal(t, []models.Comment{{ID: "c2", PostID: "p2"}}, treeAt(c, "p2"))
	assert.Equal(t, []string{cache.PostsKey().String()}, refetcher.keys)
}

func TestDeletePostRollbackRestoresSingleton(t *testing.T) {
	api := newStubAPI()
	api.fail("delete_post", errBackend)
	f, c := newTestFeed(api)
	c.Set(cache.PostsKey(), []models.Post{{ID: "p1"}})
	c.Set(cache.PostKey("p1"), models.Post{ID: "p1", Title: "kept"})
	c.Set(cache.CommentsKey("p1"), []models.Comment{{ID: "c1", PostID: "p1"}})

	err := f.DeletePost(context.Background(), models.PostRef{PostID: "p1"})

	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, []models.Post{{ID: "p1"}}, c.Get(cache.PostsKey()))
	assert.Equal(t, models.Post{ID: "p1", Title: "kept"}, c.Get(cache.PostKey("p1")))
	assert.Equal(t, []models.Comment{{ID: "c1", PostID: "p1"}}, treeAt(c, "p1"))
}

func TestSwitchSessionResetsCache(t *testing.T) {
	api := newStubAPI()
	f, c := newTestFeed(api)
	c.Set(cache.PostsKey(), []models.Post{{ID: "p1"}})
	grace := models.Author{UserID: "u2", Username: "grace"}

	f.SwitchSession(services.Session{Author: grace})

	_, found := c.Lookup(cache.PostsKey())
	assert.False(t, found)
	assert.Equal(t, grace, f.currentAuthor())
}

func TestCallbacksSeeServerResponse(t *testing.T) {
	api := newStubAPI()
	api.comment = models.Comment{ID: "S1", Content: "hi"}
	f, _ := newTestFeed(api)

	var got models.Comment
	var settled bool
	_, err := f.CreateComment(context.Background(), models.CreateComment{PostID: "p1", Content: "hi"}, mutation.Callbacks[models.Comment]{
		OnSuccess: func(c models.Comment) { got = c },
		OnSettled: func(models.Comment, error) { settled = true },
	})

	require.NoError(t, err)
	assert.Equal(t, "S1", got.ID)
	assert.True(t, settled)
}

func TestCommentWithoutServerIDKeepsTemporaryNode(t *testing.T) {
	api := newStubAPI()
	f, c := newTestFeed(api)
	c.Set(cache.CommentsKey("p1"), []models.Comment{{ID: "P", PostID: "p1"}})

	_, err := f.CreateComment(context.Background(), models.CreateComment{PostID: "p1", Content: "hello", TempID: "T"})
	require.NoError(t, err)
	_, err = f.ReplyComment(context.Background(), models.ReplyComment{PostID: "p1", ParentID: "P", Content: "hi", TempID: "R"})
	require.NoError(t, err)

	tree := treeAt(c, "p1")
	created, ok := commenttree.Find(tree, "T")
	require.True(t, ok)
	assert.Equal(t, "hello", created.Content)
	assert.True(t, created.IsTemporary)
	reply, ok := commenttree.Find(tree, "R")
	require.True(t, ok)
	assert.Equal(t, "hi", reply.Content)
	assert.Zero(t, countCommentID(tree, ""))
}

func countCommentID(tree []models.Comment, id string) int {
	total := 0
	for _, node := range tree {
		if node.ID == id {
			total++
		}
		total += countCommentID(node.Replies, id)
	}
	return total
}
