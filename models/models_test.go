package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		wantErr string
	}{
		{name: "create ok", payload: CreateComment{PostID: "p1", Content: "hi"}},
		{name: "create empty content", payload: CreateComment{PostID: "p1"}, wantErr: "CreateComment.Content"},
		{name: "reply needs parent", payload: ReplyComment{PostID: "p1", Content: "hi"}, wantErr: "ReplyComment.ParentID"},
		{name: "comment too long", payload: EditComment{PostID: "p1", CommentID: "c1", Content: string(make([]byte, 2001))}, wantErr: `"max"`},
		{name: "ref ok", payload: CommentRef{PostID: "p1", CommentID: "c1"}},
		{name: "post ref empty", payload: PostRef{}, wantErr: "PostRef.PostID"},
		{name: "patch ok", payload: UpdatePost{PostID: "p1", Patch: PostPatch{Title: ptr("New")}}},
		{name: "patch empty title", payload: UpdatePost{PostID: "p1", Patch: PostPatch{Title: ptr("")}}, wantErr: "UpdatePost.Patch.Title"},
		{name: "patch bad media url", payload: UpdatePost{PostID: "p1", Patch: PostPatch{MediaURLs: []string{"not a url"}}}, wantErr: "MediaURLs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidPayload)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostPatchApply(t *testing.T) {
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	post := Post{ID: "p1", Title: "Old", Content: "body", MediaURLs: []string{"https://a.test/1.jpg"}, LikesCount: 3}

	updated := PostPatch{Title: ptr("New"), StartDate: &start}.Apply(post)

	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "body", updated.Content)
	assert.Equal(t, 3, updated.LikesCount)
	require.NotNil(t, updated.StartDate)
	assert.True(t, updated.StartDate.Equal(start))
	assert.NotSame(t, &start, updated.StartDate)
	assert.Equal(t, "Old", post.Title, "input must not change")

	updated.MediaURLs[0] = "changed"
	assert.Equal(t, "https://a.test/1.jpg", post.MediaURLs[0])
}

func TestPostWithLike(t *testing.T) {
	post := Post{ID: "p1", LikesCount: 0}

	liked := post.WithLike(1, true)
	assert.Equal(t, 1, liked.LikesCount)
	assert.True(t, liked.HasLiked)

	unliked := post.WithLike(-1, false)
	assert.Equal(t, 0, unliked.LikesCount)
	assert.False(t, unliked.HasLiked)
}

func TestPostCloneDoesNotShare(t *testing.T) {
	end := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	post := Post{MediaURLs: []string{"x"}, EndDate: &end}

	cloned := post.Clone()
	cloned.MediaURLs[0] = "y"
	*cloned.EndDate = end.Add(time.Hour)

	assert.Equal(t, "x", post.MediaURLs[0])
	assert.True(t, post.EndDate.Equal(end))
}
