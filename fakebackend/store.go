// Package fakebackend is an in-memory implementation of the alumni feed REST
// API. It serves local development through alumnictl and end-to-end tests.
package fakebackend

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"alumnihub.com/alumni-feed/models"
)

var (
	errPostNotFound    = errors.New("post not found")
	errCommentNotFound = errors.New("comment not found")
	errForbidden       = errors.New("not allowed to modify this resource")
)

type commentRecord struct {
	comment  models.Comment
	parentID string
	likes    map[string]bool
}

type postRecord struct {
	post  models.Post
	likes map[string]bool
}

// Store holds posts, comments and likes. Like counts and viewer flags are
// derived from the like sets on every read.
type Store struct {
	mu       sync.Mutex
	posts    []*postRecord
	comments map[string]*commentRecord
	order    []string
	failures map[string][]int
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		comments: make(map[string]*commentRecord),
		failures: make(map[string][]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FailNext makes the next request to the named route answer with status
// instead of being served.
func (s *Store) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

func (s *Store) takeFailure(route string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := s.failures[route]
	if len(queued) == 0 {
		return 0, false
	}
	s.failures[route] = queued[1:]
	return queued[0], true
}

// SeedPost stores post, assigning an ID and creation time when missing. Posts
// are listed newest first.
func (s *Store) SeedPost(post models.Post) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	post.LikesCount, post.HasLiked, post.CommentsCount = 0, false, 0
	s.posts = append([]*postRecord{{post: post.Clone(), likes: make(map[string]bool)}}, s.posts...)

	return post
}

// SeedComment stores a comment or, when parentID is set, a reply.
func (s *Store) SeedComment(postID string, parentID string, author models.Author, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addCommentLocked(postID, parentID, author, content)
}

func (s *Store) listPosts(viewer string) []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]models.Post, 0, len(s.posts))
	for _, rec := range s.posts {
		posts = append(posts, s.viewPostLocked(rec, viewer))
	}
	return posts
}

func (s *Store) getPost(postID string, viewer string) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findPostLocked(postID)
	if rec == nil {
		return models.Post{}, errPostNotFound
	}
	return s.viewPostLocked(rec, viewer), nil
}

func (s *Store) updatePost(postID string, viewer string, patch models.PostPatch) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findPostLocked(postID)
	if rec == nil {
		return models.Post{}, errPostNotFound
	}
	if rec.post.AuthorUserID != viewer {
		return models.Post{}, errForbidden
	}
	rec.post = patch.Apply(rec.post)

	return s.viewPostLocked(rec, viewer), nil
}

func (s *Store) deletePost(postID string, viewer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.posts, func(rec *postRecord) bool { return rec.post.ID == postID })
	if idx < 0 {
		return errPostNotFound
	}
	if s.posts[idx].post.AuthorUserID != viewer {
		return errForbidden
	}
	s.posts = slices.Delete(s.posts, idx, idx+1)

	for id, rec := range s.comments {
		if rec.comment.PostID == postID {
			delete(s.comments, id)
		}
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool {
		_, ok := s.comments[id]
		return !ok
	})

	return nil
}

func (s *Store) setPostLike(postID string, viewer string, liked bool) (models.LikeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.findPostLocked(postID)
	if rec == nil {
		return models.LikeState{}, errPostNotFound
	}
	if liked {
		rec.likes[viewer] = true
	} else {
		delete(rec.likes, viewer)
	}

	return models.LikeState{Liked: liked, LikesCount: len(rec.likes)}, nil
}

func (s *Store) listComments(postID string, viewer string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findPostLocked(postID) == nil {
		return nil, errPostNotFound
	}
	return s.treeLocked(postID, "", viewer), nil
}

func (s *Store) addComment(postID string, parentID string, author models.Author, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addCommentLocked(postID, parentID, author, content)
}

func (s *Store) editComment(commentID string, viewer string, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.comments[commentID]
	if !ok {
		return models.Comment{}, errCommentNotFound
	}
	if rec.comment.Author.UserID != viewer {
		return models.Comment{}, errForbidden
	}
	rec.comment.Content = content

	return s.viewCommentLocked(rec, viewer), nil
}

func (s *Store) deleteComment(commentID string, viewer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.comments[commentID]
	if !ok {
		return errCommentNotFound
	}
	if rec.comment.Author.UserID != viewer {
		return errForbidden
	}

	doomed := map[string]bool{commentID: true}
	// Replies are always stored after their parent.
	for _, id := range s.order {
		if doomed[s.comments[id].parentID] {
			doomed[id] = true
		}
	}
	for id := range doomed {
		delete(s.comments, id)
	}
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return doomed[id] })

	return nil
}

func (s *Store) setCommentLike(commentID string, viewer string, liked bool) (models.LikeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.comments[commentID]
	if !ok {
		return models.LikeState{}, errCommentNotFound
	}
	if liked {
		rec.likes[viewer] = true
	} else {
		delete(rec.likes, viewer)
	}

	return models.LikeState{Liked: liked, LikesCount: len(rec.likes)}, nil
}

func (s *Store) addCommentLocked(postID string, parentID string, author models.Author, content string) (models.Comment, error) {
	if parentID != "" {
		parent, ok := s.comments[parentID]
		if !ok {
			return models.Comment{}, errCommentNotFound
		}
		postID = parent.comment.PostID
	}
	if s.findPostLocked(postID) == nil {
		return models.Comment{}, errPostNotFound
	}

	rec := &commentRecord{
		comment: models.Comment{
			ID:        uuid.NewString(),
			PostID:    postID,
			Content:   content,
			Author:    author,
			CreatedAt: s.now(),
		},
		parentID: parentID,
		likes:    make(map[string]bool),
	}
	s.comments[rec.comment.ID] = rec
	s.order = append(s.order, rec.comment.ID)

	return s.viewCommentLocked(rec, author.UserID), nil
}

func (s *Store) findPostLocked(postID string) *postRecord {
	for _, rec := range s.posts {
		if rec.post.ID == postID {
			return rec
		}
	}
	return nil
}

func (s *Store) viewPostLocked(rec *postRecord, viewer string) models.Post {
	post := rec.post.Clone()
	post.LikesCount = len(rec.likes)
	post.HasLiked = rec.likes[viewer]
	for _, c := range s.comments {
		if c.comment.PostID == post.ID {
			post.CommentsCount++
		}
	}
	return post
}

func (s *Store) viewCommentLocked(rec *commentRecord, viewer string) models.Comment {
	comment := rec.comment
	comment.LikeCount = len(rec.likes)
	comment.HasLike = rec.likes[viewer]
	comment.Replies = []models.Comment{}
	return comment
}

func (s *Store) treeLocked(postID string, parentID string, viewer string) []models.Comment {
	tree := []models.Comment{}
	for _, id := range s.order {
		rec := s.comments[id]
		if rec.comment.PostID != postID || rec.parentID != parentID {
			continue
		}
		node := s.viewCommentLocked(rec, viewer)
		node.Replies = s.treeLocked(postID, id, viewer)
		tree = append(tree, node)
	}
	return tree
}
