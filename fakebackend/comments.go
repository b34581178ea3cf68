package fakebackend

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

const maxCommentLength = 2000

type commentBody struct {
	PostID  string `json:"post_id"`
	Content string `json:"content"`
}

func decodeComment(w http.ResponseWriter, r *http.Request) (commentBody, bool) {
	var body commentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return body, false
	}
	if strings.TrimSpace(body.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return body, false
	}
	if len(body.Content) > maxCommentLength {
		writeError(w, http.StatusBadRequest, "content must be at most 2000 characters")
		return body, false
	}

	return body, true
}

func GetPostComments(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["postId"]

		comments, err := store.listComments(postID, viewerFrom(r).UserID)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, comments)
	}
}

func CreateComment(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["postId"]

		body, ok := decodeComment(w, r)
		if !ok {
			return
		}

		comment, err := store.addComment(postID, "", viewerFrom(r), body.Content)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, comment)
	}
}

// ReplyComment files the reply under the parent's post whatever post_id the
// body carries.
func ReplyComment(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID := mux.Vars(r)["commentId"]

		body, ok := decodeComment(w, r)
		if !ok {
			return
		}

		reply, err := store.addComment(body.PostID, parentID, viewerFrom(r), body.Content)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, reply)
	}
}

func EditComment(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := mux.Vars(r)["commentId"]

		body, ok := decodeComment(w, r)
		if !ok {
			return
		}

		comment, err := store.editComment(commentID, viewerFrom(r).UserID, body.Content)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, comment)
	}
}

func DeleteComment(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := mux.Vars(r)["commentId"]

		if err := store.deleteComment(commentID, viewerFrom(r).UserID); err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Comment deleted successfully",
		})
	}
}

func SetCommentLike(store *Store, liked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := mux.Vars(r)["commentId"]

		state, err := store.setCommentLike(commentID, viewerFrom(r).UserID, liked)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}
