package fakebackend

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"alumnihub.com/alumni-feed/models"
)

func ListPosts(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.listPosts(viewerFrom(r).UserID))
	}
}

func GetPost(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["postId"]

		post, err := store.getPost(postID, viewerFrom(r).UserID)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, post)
	}
}

func UpdatePost(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["postId"]

		var patch models.PostPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := models.Validate(patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		post, err := store.updatePost(postID, viewerFrom(r).UserID, patch)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, post)
	}
}

func DeletePost(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["postId"]

		if err := store.deletePost(postID, viewerFrom(r).UserID); err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Post deleted successfully",
		})
	}
}

// SetPostLike serves both like (POST) and unlike (DELETE). Repeating either is
// not an error.
func SetPostLike(store *Store, liked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["postId"]

		state, err := store.setPostLike(postID, viewerFrom(r).UserID, liked)
		if err != nil {
			writeStoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}
